package ticket

import (
	"fmt"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
)

// Issue is one validation finding, addressed by the JSON path of the field.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// Validate checks field formats and returns the issues found. Paths in
// ignore are suppressed, except the ticket number, which can never be waived.
// Callers wanting the unfiltered list pass a nil ignore set.
func Validate(t *Ticket, ignore map[string]struct{}) []Issue {
	var issues []Issue
	add := func(path, message string) {
		if path != constants.FieldTicketNo {
			if _, ok := ignore[path]; ok {
				return
			}
		}
		issues = append(issues, Issue{Path: path, Message: message})
	}

	if t == nil {
		return []Issue{{Path: constants.FieldTicketNo, Message: "ticket is missing"}}
	}

	if !HasValue(t.TicketNo) {
		add(constants.FieldTicketNo, "must not be empty")
	}
	if HasValue(t.DeliveryDate) {
		if _, ok := common.ParseDeliveryDate(*t.DeliveryDate); !ok {
			add(constants.FieldDeliveryDate, "unrecognized date format")
		}
	}
	if HasValue(t.DeliveryTime) && !common.IsClockTime(*t.DeliveryTime) {
		add(constants.FieldDeliveryTime, "not an H:MM clock time")
	}

	if t.MixCustomer == nil {
		add(constants.FieldMixCustomer, "row is required")
	}
	rows := []struct {
		name string
		row  *MixRow
	}{
		{constants.FieldMixCustomer, t.MixCustomer},
		{constants.FieldMixAdditional1, t.MixAdditional1},
		{constants.FieldMixAdditional2, t.MixAdditional2},
	}
	for _, r := range rows {
		if r.row == nil {
			continue
		}
		if HasValue(r.row.Qty) && !common.IsQtyValue(*r.row.Qty) {
			add(r.name+"."+constants.FieldQty, "not a quantity")
		}
		if HasValue(r.row.Slump) && !common.IsSlumpValue(*r.row.Slump) {
			add(r.name+"."+constants.FieldSlump, "not a slump value")
		}
	}

	for i := range t.ExtraCharges {
		c := &t.ExtraCharges[i]
		path := fmt.Sprintf("%s[%d]", constants.FieldExtraCharges, i)
		hasQty, hasDescr := HasValue(c.Qty), HasValue(c.Description)
		if hasQty && !common.IsChargeQty(*c.Qty) {
			add(path+"."+constants.FieldQty, "not a quantity")
		}
		if hasQty && !hasDescr {
			add(path+"."+constants.FieldDescription, "quantity without description")
		}
		if hasDescr && !hasQty {
			add(path+"."+constants.FieldQty, "description without quantity")
		}
	}

	return issues
}
