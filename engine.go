package lintflow

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"log/slog"
	"runtime"

	"golang.org/x/tools/go/analysis"
)

// Engine drives go/analysis analyzers over single files.
// Analyzers run in syntax-only mode: the pass carries a parsed file and an
// empty type info, so only syntax-level analyzers (and their inspector
// dependencies) are supported.
type Engine struct {
	analyzers []*analysis.Analyzer
	logger    *slog.Logger
}

// NewEngine creates an engine running the given analyzers.
func NewEngine(analyzers []*analysis.Analyzer, logger *slog.Logger) *Engine {
	return &Engine{
		analyzers: analyzers,
		logger:    ensureLogger(logger),
	}
}

// Version identifies the engine for cache scoping. The analysis driver has
// no version of its own, so the toolchain version stands in: a toolchain
// upgrade may change parsing or analyzer behavior and must invalidate
// cached results.
func (e *Engine) Version() string {
	return "analysis/" + runtime.Version()
}

// Check parses src and runs every analyzer against it. pkgPath is the import
// path the file belongs to, used as the synthetic package path of the pass.
// The returned result contains one violation per diagnostic, with severity
// left for the caller to assign.
func (e *Engine) Check(path string, src []byte, pkgPath string) (*Result, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, WithDetails(WithFile(NewEngineError("failed to parse source file", err), path),
			"Make sure the file is a valid Go source file")
	}

	run := &fileRun{
		fset:    fset,
		files:   []*ast.File{file},
		pkg:     types.NewPackage(pkgPath, file.Name.Name),
		results: make(map[*analysis.Analyzer]any),
	}

	result := NewResult()
	normalizedPath := NormalizePath(path)

	for _, a := range e.analyzers {
		e.logger.Debug("Running analyzer", "path", path, "rule", a.Name)

		diags, err := run.run(a)
		if err != nil {
			return nil, WithFile(NewEngineError(fmt.Sprintf("analyzer %q failed", a.Name), err), path)
		}

		for _, d := range diags {
			result.Add(Violation{
				File:     normalizedPath,
				Rule:     a.Name,
				Message:  d.Message,
				Position: diagnosticPosition(fset, d),
			})
		}
	}

	return result, nil
}

// fileRun executes analyzers over one parsed file, memoizing the results of
// required analyzers such as the AST inspector.
type fileRun struct {
	fset    *token.FileSet
	files   []*ast.File
	pkg     *types.Package
	results map[*analysis.Analyzer]any
}

func (fr *fileRun) run(a *analysis.Analyzer) ([]analysis.Diagnostic, error) {
	var diags []analysis.Diagnostic

	// Dependencies first. Their diagnostics are discarded; the inspect pass
	// never reports any.
	for _, req := range a.Requires {
		if _, done := fr.results[req]; done {
			continue
		}
		if _, err := fr.run(req); err != nil {
			return nil, err
		}
	}

	pass := &analysis.Pass{
		Analyzer:   a,
		Fset:       fr.fset,
		Files:      fr.files,
		Pkg:        fr.pkg,
		TypesInfo:  newEmptyTypesInfo(),
		TypesSizes: types.SizesFor("gc", runtime.GOARCH),
		ResultOf:   fr.results,
		Report: func(d analysis.Diagnostic) {
			diags = append(diags, d)
		},
	}

	res, err := a.Run(pass)
	if err != nil {
		return nil, err
	}
	fr.results[a] = res

	return diags, nil
}

// newEmptyTypesInfo builds a types.Info with allocated maps so analyzers
// that consult it see an empty package rather than nil maps.
func newEmptyTypesInfo() *types.Info {
	return &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
}

// diagnosticPosition converts a diagnostic position to the reporting form.
// go/token positions are 1-based; diagnostics without a position, or from
// plugin analyzers that synthesize 0-based values, are normalized so the
// reported line and column are always 1-based.
func diagnosticPosition(fset *token.FileSet, d analysis.Diagnostic) *Position {
	pos := fset.Position(d.Pos)

	p := &Position{
		Line:   pos.Line,
		Column: pos.Column,
		Offset: pos.Offset,
	}

	if d.End.IsValid() {
		end := fset.Position(d.End)
		p.EndLine = end.Line
		p.EndColumn = end.Column
	}

	return normalizePosition(p)
}

// normalizePosition bumps 0-based line and column values to the 1-based
// convention used in every reporting surface.
func normalizePosition(p *Position) *Position {
	if p == nil {
		return nil
	}
	if p.Line < 1 {
		p.Line++
	}
	if p.Column < 1 {
		p.Column++
	}
	if p.EndLine != 0 && p.EndLine < 1 {
		p.EndLine++
	}
	if p.EndColumn != 0 && p.EndColumn < 1 {
		p.EndColumn++
	}
	return p
}
