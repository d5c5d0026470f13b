package constants

// Canonical JSON field names for an extracted ticket. The batching plant's
// page layout names these columns, and the model is prompted to echo them
// exactly, punctuation included.
const (
	FieldTicketNo        = "Ticket No."
	FieldDeliveryDate    = "Delivery Date"
	FieldDeliveryTime    = "Delivery Time"
	FieldDeliveryAddress = "Delivery Address"
	FieldMixCustomer     = "Mix Customer"
	FieldMixAdditional1  = "Mix Additional 1"
	FieldMixAdditional2  = "Mix Additional 2"
	FieldExtraCharges    = "Extra Charges"
)

// Canonical JSON field names within a mix row.
const (
	FieldQty         = "Qty"
	FieldCustDescr   = "Cust. Descr."
	FieldDescription = "Description"
	FieldCode        = "Code"
	FieldSlump       = "Slump"
)

// Section markers. A section runs from the first line containing a start
// marker to the next line containing an end marker.
var (
	MixStartMarkers = []string{"MIX"}
	MixEndMarkers   = []string{"INSTRUCTIONS"}

	ExtraChargesStartMarkers = []string{"EXTRA CHARGES"}
	ExtraChargesEndMarkers   = []string{"WATER CONTENT"}
)

// HeaderVocabulary holds the words that appear in table headers and page
// furniture around the mix table. A line whose every token falls in this set
// carries no row data.
var HeaderVocabulary = map[string]struct{}{
	"MIX":         {},
	"TABLE":       {},
	"TERMS":       {},
	"CONDITIONS":  {},
	"ON":          {},
	"LAST":        {},
	"PAGE":        {},
	"QTY":         {},
	"CUST":        {},
	"DESCR":       {},
	"DESCRIPTION": {},
	"CODE":        {},
	"SLUMP":       {},
	"PLANT":       {},
	"CERTIFICATE": {},
	"ADDRESS":     {},
	"TICKET":      {},
	"NO":          {},
}

// NonSpecLinePrefixes marks lines inside the mix section that belong to the
// surrounding page furniture rather than to a mix row's customer spec.
var NonSpecLinePrefixes = []string{
	"ADDRESS:",
	"TICKET NO:",
	"PLANT NO:",
	"CERTIFICATE:",
}

// Item types used in the LineItems export sheet.
const (
	ItemTypeMixCustomer    = "Mix Customer"
	ItemTypeMixAdditional1 = "Mix Additional 1"
	ItemTypeMixAdditional2 = "Mix Additional 2"
	ItemTypeExtraCharge    = "Extra Charge"
)
