package receipt

// receiptPrompt instructs the vision model to answer with bare JSON. The
// instruction is advisory only; the pipeline still strips fences and falls
// back to text scanning when the model ignores it.
const receiptPrompt = `Extract data from this receipt/bill image.

Primary goal: return the FINAL TOTAL payable.
If the image is noisy/tilted/partial, do a best-effort extraction.

Important fallback:
- If there is NO explicit final total (no TOTAL / GRAND TOTAL / AMOUNT DUE etc.), then add up the prices of all purchased items and use that sum as the total amount.
- Ignore non-item numbers like phone numbers, order IDs, timestamps, loyalty IDs.

Guidelines:
- Prefer labels like: TOTAL, GRAND TOTAL, AMOUNT DUE, BALANCE DUE, TOTAL DUE.
- Don't return subtotal/tax/tip unless there is no final total.
- If multiple totals exist, pick the final payable amount (often near the bottom).
- Return the amount as a plain number (no currency symbol). Use a dot for decimals.

Return ONLY valid JSON in EXACTLY this shape (no markdown, no extra text):
{
  "amount": number,
  "date": "ISO date string or empty string",
  "description": "brief summary or empty string",
  "merchantName": "string or empty string",
  "category": "one of: housing,transportation,groceries,utilities,entertainment,food,shopping,healthcare,education,personal,travel,insurance,gifts,bills,other-expense or empty string",
  "lineItems": [{ "name": "string", "amount": number }]
}

If you cannot confidently identify any total amount, return: {}`
