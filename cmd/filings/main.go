// Command filings is the CLI for the regulatory filings engine.
// It validates submitted sheet grids against rule packs and converts
// validated submissions to and from XBRL instance documents.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	json "github.com/goccy/go-json"

	"github.com/regsuite/filings/core/engine"
	"github.com/regsuite/filings/core/sheet"
	"github.com/regsuite/filings/core/xbrl"
	"github.com/regsuite/filings/internal/archive"
	"github.com/regsuite/filings/internal/logging"
	"github.com/regsuite/filings/internal/ruleset"
	"github.com/regsuite/filings/internal/store"
	"github.com/regsuite/filings/internal/validation"
)

const version = "0.2.0"

// CLI defines the command-line interface for filings.
var CLI struct {
	// Global flags
	Verbose bool `name:"verbose" short:"v" help:"Enable debug logging"`
	LogText bool `name:"log-text" help:"Log in human-readable text instead of JSON"`

	// Command groups (noun-first organization)
	Sheet   SheetGroup `cmd:"" help:"Sheet validation operations"`
	Xbrl    XbrlGroup  `cmd:"" help:"XBRL document operations"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// SheetGroup contains sheet validation operations.
type SheetGroup struct {
	Validate SheetValidateCmd `cmd:"" help:"Validate a sheet grid against a rule pack"`
}

// XbrlGroup contains XBRL document operations.
type XbrlGroup struct {
	Parse     XbrlParseCmd     `cmd:"" help:"Parse an instance document and print its model"`
	Validate  XbrlValidateCmd  `cmd:"" help:"Validate an instance against a taxonomy"`
	Generate  XbrlGenerateCmd  `cmd:"" help:"Generate an instance document for a passed submission"`
	Roundtrip XbrlRoundtripCmd `cmd:"" help:"Parse an instance and regenerate it"`
}

// SheetValidateCmd validates one sheet grid against a rule pack.
type SheetValidateCmd struct {
	Rules        string `arg:"" help:"Path to YAML rule pack" type:"existingfile"`
	Sheet        string `arg:"" help:"Path to CSV sheet grid" type:"existingfile"`
	Submission   string `name:"submission" help:"Submission identifier" default:""`
	SheetName    string `name:"sheet-name" help:"Sheet name override"`
	Store        string `name:"store" help:"SQLite path to persist the run" type:"path"`
	FailuresOnly bool   `name:"failures-only" help:"Print only failing results"`
}

// Run executes the sheet validate command.
func (c *SheetValidateCmd) Run() error {
	pack, err := ruleset.LoadPack(c.Rules)
	if err != nil {
		return err
	}
	grid, err := ruleset.LoadGridCSV(c.Sheet, c.SheetName)
	if err != nil {
		return err
	}

	summary := engine.Run(c.Submission, grid, pack.Rules)

	if c.Store != "" {
		st, err := store.Open(c.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveRun(context.Background(), summary); err != nil {
			return err
		}
	}

	out := *summary
	if c.FailuresOnly {
		var failures []engine.Result
		for _, r := range summary.Results {
			if !r.IsValid {
				failures = append(failures, r)
			}
		}
		out.Results = failures
	}

	if err := printJSON(out); err != nil {
		return err
	}
	if summary.Status == engine.StatusFailed {
		// Non-zero exit so pipelines can gate on the verdict.
		os.Exit(1)
	}
	return nil
}

// XbrlParseCmd parses an instance document and prints the typed model.
type XbrlParseCmd struct {
	Instance string `arg:"" help:"Path to XBRL instance document" type:"existingfile"`
}

// Run executes the xbrl parse command.
func (c *XbrlParseCmd) Run() error {
	if err := validation.CheckDocumentSize(c.Instance); err != nil {
		return err
	}
	parser := xbrl.NewParser()
	inst, err := parser.ParseInstanceFile(context.Background(), c.Instance)
	if err != nil {
		return err
	}
	return printJSON(inst)
}

// XbrlValidateCmd validates an instance document against a taxonomy schema.
type XbrlValidateCmd struct {
	Instance string `arg:"" help:"Path to XBRL instance document" type:"existingfile"`
	Taxonomy string `arg:"" help:"Path to taxonomy schema document" type:"existingfile"`
}

// Run executes the xbrl validate command.
func (c *XbrlValidateCmd) Run() error {
	for _, path := range []string{c.Instance, c.Taxonomy} {
		if err := validation.CheckDocumentSize(path); err != nil {
			return err
		}
	}

	parser := xbrl.NewParser()
	ctx := context.Background()
	inst, err := parser.ParseInstanceFile(ctx, c.Instance)
	if err != nil {
		return err
	}
	tax, err := parser.ParseTaxonomyFile(ctx, c.Taxonomy)
	if err != nil {
		return err
	}

	report := xbrl.Validate(inst, xbrl.DeriveTemplate(tax))
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.IsValid {
		os.Exit(1)
	}
	return nil
}

// XbrlGenerateCmd generates an instance document for a passed submission:
// the sheet is validated first, then field values (concept name in the
// first column, value in the second) are synthesized into a document.
type XbrlGenerateCmd struct {
	Rules    string `arg:"" help:"Path to YAML rule pack" type:"existingfile"`
	Sheet    string `arg:"" help:"Path to CSV sheet grid" type:"existingfile"`
	Taxonomy string `arg:"" help:"Path to taxonomy schema document" type:"existingfile"`
	Output   string `arg:"" help:"Destination path for the generated document" type:"path"`

	Entity    string `name:"entity" help:"Reporting entity identifier" required:""`
	Instant   string `name:"instant" help:"Instant reporting date (YYYY-MM-DD)"`
	StartDate string `name:"start" help:"Period start date (YYYY-MM-DD)"`
	EndDate   string `name:"end" help:"Period end date (YYYY-MM-DD)"`
	Currency  string `name:"currency" help:"ISO-4217 currency for monetary facts" default:"USD"`
	Decimals  string `name:"decimals" help:"Declared decimals for monetary facts" default:"2"`
	Bundle    string `name:"bundle" help:"Also write a .tar.xz/.tar.gz report bundle" type:"path"`
}

// Run executes the xbrl generate command.
func (c *XbrlGenerateCmd) Run() error {
	pack, err := ruleset.LoadPack(c.Rules)
	if err != nil {
		return err
	}
	grid, err := ruleset.LoadGridCSV(c.Sheet, "")
	if err != nil {
		return err
	}

	summary := engine.Run("", grid, pack.Rules)
	if !summary.Passed() {
		return fmt.Errorf("%w: %d error(s)", xbrl.ErrSubmissionNotPassed, summary.ErrorCount)
	}

	if err := validation.CheckDocumentSize(c.Taxonomy); err != nil {
		return err
	}
	ctx := context.Background()
	parser := xbrl.NewParser()
	tax, err := parser.ParseTaxonomyFile(ctx, c.Taxonomy)
	if err != nil {
		return err
	}
	tmpl := xbrl.DeriveTemplate(tax)

	values := fieldValues(grid)
	inst, err := xbrl.BuildInstance(tmpl, values, xbrl.BuildOptions{
		Entity:    c.Entity,
		Period:    xbrl.Period{Instant: c.Instant, StartDate: c.StartDate, EndDate: c.EndDate},
		Currency:  c.Currency,
		SchemaRef: c.Taxonomy,
		Decimals:  c.Decimals,
	})
	if err != nil {
		return err
	}

	gen := xbrl.NewGenerator()
	if err := gen.GenerateToFile(ctx, inst, c.Output); err != nil {
		return err
	}
	fmt.Printf("Generated %s (%d facts)\n", c.Output, len(inst.Facts))

	if c.Bundle != "" {
		data, err := os.ReadFile(c.Output)
		if err != nil {
			return err
		}
		manifest, err := archive.WriteBundle(c.Bundle, summary.SubmissionID, summary.RunID+".xbrl", data)
		if err != nil {
			return err
		}
		fmt.Printf("Bundled %s (blake3 %s)\n", c.Bundle, manifest.BLAKE3[:16])
	}
	return nil
}

// XbrlRoundtripCmd parses an instance and regenerates it, printing the
// regenerated document to stdout or a file.
type XbrlRoundtripCmd struct {
	Instance string `arg:"" help:"Path to XBRL instance document" type:"existingfile"`
	Output   string `arg:"" optional:"" help:"Destination path (stdout if omitted)" type:"path"`
}

// Run executes the xbrl roundtrip command.
func (c *XbrlRoundtripCmd) Run() error {
	if err := validation.CheckDocumentSize(c.Instance); err != nil {
		return err
	}
	ctx := context.Background()
	parser := xbrl.NewParser()
	inst, err := parser.ParseInstanceFile(ctx, c.Instance)
	if err != nil {
		return err
	}

	gen := xbrl.NewGenerator()
	if c.Output == "" {
		data, err := gen.Generate(inst)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	return gen.GenerateToFile(ctx, inst, c.Output)
}

// VersionCmd prints version information.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run() error {
	fmt.Printf("filings %s (sqlite driver: %s)\n", version, store.DriverType())
	return nil
}

// fieldValues extracts concept values from a two-column grid: concept name
// in column A, value in column B, one concept per row.
func fieldValues(grid *sheet.Grid) map[string]string {
	values := make(map[string]string)
	for row := 1; row <= grid.RowCount(); row++ {
		name, _ := grid.Cell(row, 1)
		value, _ := grid.Cell(row, 2)
		if name != "" {
			values[name] = value
		}
	}
	return values
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(data))
	return err
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("filings"),
		kong.Description("Regulatory filings - sheet validation and XBRL interchange"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := logging.LevelInfo
	if CLI.Verbose {
		level = logging.LevelDebug
	}
	format := logging.FormatJSON
	if CLI.LogText {
		format = logging.FormatText
	}
	logging.InitLogger(level, format)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
