package candidate

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"parsersmith/pkg/pdftext"
	"parsersmith/pkg/table"
)

// Symbols exposes the module packages a candidate may import to the
// interpreter. Keys follow yaegi's "importpath/name" convention.
var Symbols = interp.Exports{
	"parsersmith/pkg/table/table": {
		"Table":      reflect.ValueOf((*table.Table)(nil)),
		"Column":     reflect.ValueOf((*table.Column)(nil)),
		"Kind":       reflect.ValueOf((*table.Kind)(nil)),
		"KindNull":   reflect.ValueOf(table.KindNull),
		"KindBool":   reflect.ValueOf(table.KindBool),
		"KindInt":    reflect.ValueOf(table.KindInt),
		"KindFloat":  reflect.ValueOf(table.KindFloat),
		"KindString": reflect.ValueOf(table.KindString),

		"New":           reflect.ValueOf(table.New),
		"FromRecords":   reflect.ValueOf(table.FromRecords),
		"Normalize":     reflect.ValueOf(table.Normalize),
		"InferKind":     reflect.ValueOf(table.InferKind),
		"ParseAmount":   reflect.ValueOf(table.ParseAmount),
		"ParseAmountEU": reflect.ValueOf(table.ParseAmountEU),
	},
	"parsersmith/pkg/pdftext/pdftext": {
		"Document": reflect.ValueOf((*pdftext.Document)(nil)),
		"Page":     reflect.ValueOf((*pdftext.Page)(nil)),

		"Open":      reflect.ValueOf(pdftext.Open),
		"Text":      reflect.ValueOf(pdftext.Text),
		"Rows":      reflect.ValueOf(pdftext.Rows),
		"PlainText": reflect.ValueOf(pdftext.PlainText),

		"ErrMalformed": reflect.ValueOf(&pdftext.ErrMalformed).Elem(),
	},
}
