package resolve

import (
	"regexp"

	"github.com/AaronLay10/zbxport/internal/model"
)

var functionMacro = regexp.MustCompile(`\{([0-9]+)\}`)

// ExpandExpression replaces every {functionid} in expr with
// {host:key.function(parameter)}. Other macros are left alone.
func ExpandExpression(expr string, functions []model.Function, items map[string]model.ItemRef) (string, error) {
	if expr == "" {
		return "", nil
	}
	byID := make(map[string]model.Function, len(functions))
	for _, f := range functions {
		byID[f.ID] = f
	}
	var err error
	out := functionMacro.ReplaceAllStringFunc(expr, func(m string) string {
		if err != nil {
			return m
		}
		id := m[1 : len(m)-1]
		f, ok := byID[id]
		if !ok {
			err = missing("function", id)
			return m
		}
		ref, ok := items[f.ItemID]
		if !ok {
			err = missing(model.KindItem, f.ItemID)
			return m
		}
		return "{" + ref.Host + ":" + ref.Key + "." + f.Name + "(" + f.Parameter + ")}"
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
