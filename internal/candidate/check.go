package candidate

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// Check validates source structure before it is interpreted: it must parse,
// import only allowed packages, be package main, and declare exactly one
// top-level Parse function and no main function.
func Check(filename, source string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, source, parser.SkipObjectResolution)
	if err != nil {
		return &LoadError{Kind: KindSyntax, Path: filename, Err: err}
	}

	var forbidden []string
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, "\"`")
		if !allowedImports[path] {
			forbidden = append(forbidden, fmt.Sprintf("%s (%s)", path, fset.Position(imp.Pos())))
		}
	}
	if len(forbidden) > 0 {
		return &LoadError{
			Kind: KindForbiddenImport,
			Path: filename,
			Msg:  fmt.Sprintf("forbidden imports: %s; allowed: %s", strings.Join(forbidden, ", "), strings.Join(AllowedImports(), ", ")),
		}
	}

	if file.Name.Name != "main" {
		return &LoadError{Kind: KindMissingEntryPoint, Path: filename,
			Msg: fmt.Sprintf("package %s, want package main", file.Name.Name)}
	}

	var parses []*ast.FuncDecl
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil {
			continue
		}
		switch fn.Name.Name {
		case EntryPoint:
			parses = append(parses, fn)
		case "main":
			return &LoadError{Kind: KindSignature, Path: filename,
				Msg: fmt.Sprintf("func main is not allowed (%s)", fset.Position(fn.Pos()))}
		}
	}

	switch len(parses) {
	case 0:
		return &LoadError{Kind: KindMissingEntryPoint, Path: filename,
			Msg: "no top-level func Parse(pdfPath string) (*table.Table, error)"}
	case 1:
	default:
		return &LoadError{Kind: KindMissingEntryPoint, Path: filename,
			Msg: fmt.Sprintf("%d top-level Parse functions, want exactly one", len(parses))}
	}

	if n := parses[0].Type.Params.NumFields(); n != 1 {
		return &LoadError{Kind: KindSignature, Path: filename,
			Msg: fmt.Sprintf("Parse takes %d parameters, want 1 (pdfPath string)", n)}
	}
	return nil
}
