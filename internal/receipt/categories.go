package receipt

// receiptCategories is the fixed set of expense categories the extractor may
// propose; anything else the model invents is dropped during reconciliation.
var receiptCategories = map[string]struct{}{
	"housing":        {},
	"transportation": {},
	"groceries":      {},
	"utilities":      {},
	"entertainment":  {},
	"food":           {},
	"shopping":       {},
	"healthcare":     {},
	"education":      {},
	"personal":       {},
	"travel":         {},
	"insurance":      {},
	"gifts":          {},
	"bills":          {},
	"other-expense":  {},
}

func validCategory(name string) bool {
	_, ok := receiptCategories[name]
	return ok
}
