// Package expense implements the sample pluggable "exp" service
// (SPEC_FULL.md §12 "Sample pluggable service 'exp'"): the concrete
// tenant spec §8 scenarios 3-5 exercise. Grounded on the teacher's
// internal/cli/cbu_crud.go (one small CRUD-shaped handler per command,
// a storage handle passed in rather than held globally).
package expense

import (
	"fmt"
	"strings"

	"botcore/internal/exec"
	"botcore/internal/schema"
)

const collection = "expenses"

// Register binds every "exp" command handler into reg.
func Register(reg *schema.Registry) {
	reg.Register("exp", "add", add)
	reg.Register("exp", "edit", edit)
	reg.Register("exp", "list", list)
	reg.Register("exp", "total", total)
}

func formatAmount(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if neg {
		return "-" + s
	}
	return s
}

// add appends one expense and replies with the running total (spec §8
// scenario 3).
func add(ctx *exec.Context) (string, error) {
	item, _ := ctx.Args["item"].(string)
	amount, ok := ctx.Args["amount"].(int)
	if !ok {
		return "", fmt.Errorf("exp.add: amount missing or not an int")
	}
	if _, err := ctx.Storage.Add(collection, map[string]any{
		"item": item, "amount": amount, "addedBy": ctx.UserID,
	}); err != nil {
		return "", fmt.Errorf("recording expense: %w", err)
	}
	sum, err := ctx.Storage.Aggregate(collection, "amount", "sum", nil)
	if err != nil {
		return "", fmt.Errorf("computing total: %w", err)
	}
	return fmt.Sprintf("Added: %s - %s (new total: %s)", item, formatAmount(amount), formatAmount(int(sum))), nil
}

// edit shallow-merges price/item from whichever syntax bound (child or
// parent, spec §8 scenario 4) into the record at the given 1-based
// index; it does not check which syntax that was. The parent syntax's
// childNo selects whose list is being edited in a real multi-child
// deployment; this sample keeps one shared list per chat, so childNo
// is accepted but not dereferenced into a per-child collection.
func edit(ctx *exec.Context) (string, error) {
	itemNo, ok := ctx.Args["itemNo"].(int)
	if !ok {
		return "", fmt.Errorf("exp.edit: itemNo missing or not an int")
	}

	patch := map[string]any{}
	if price, ok := ctx.Args["price"].(int); ok {
		patch["amount"] = price
	}
	if item, ok := ctx.Args["item"].(string); ok && item != "" {
		patch["item"] = item
	}
	if len(patch) == 0 {
		return "Nothing to change.", nil
	}

	rec, ok := ctx.Storage.UpdateByIndex(collection, itemNo, patch)
	if !ok {
		return "No expense at position " + formatAmount(itemNo) + ".", nil
	}
	item, _ := rec["item"].(string)
	amount, _ := rec["amount"].(int)
	return fmt.Sprintf("Updated #%d: %s - %s", itemNo, item, formatAmount(amount)), nil
}

// list renders every recorded expense as a numbered list.
func list(ctx *exec.Context) (string, error) {
	records := ctx.Storage.Query(collection, nil)
	if len(records) == 0 {
		return "No expenses recorded.", nil
	}
	var b strings.Builder
	b.WriteString("*Expenses*\n")
	for i, rec := range records {
		item, _ := rec["item"].(string)
		amount, _ := rec["amount"].(int)
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, item, formatAmount(amount))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// total replies with the sum of every recorded expense.
func total(ctx *exec.Context) (string, error) {
	sum, err := ctx.Storage.Aggregate(collection, "amount", "sum", nil)
	if err != nil {
		return "", fmt.Errorf("computing total: %w", err)
	}
	return "Total: " + formatAmount(int(sum)), nil
}
