// Command clpdemo is a sample host for the clp package. It declares a
// small descriptor tree exercising numbers (one with a SELECTION
// table), strings, an object and an overlay, loads the ambient hostcfg configuration, and dispatches to
// property parsing, command parsing, or the interactive introspection
// browser depending on the outer flags given on argv.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/limes-datentechnik-gmbh/flamclep/clp"
	"github.com/limes-datentechnik-gmbh/flamclep/hostcfg"
	"github.com/limes-datentechnik-gmbh/flamclep/introspect"
)

// targetSize is the flat byte buffer clpdemo binds into. Layout, by
// offset: NUM08 (1@0), NUM16 (2@1), M.A/M.B payload (80@5), ARR's COUNT
// link (1@85), ARR's TLN link (2@86), ARR itself (20@88, 4x5 fixed
// STRING), root.sub.opt (2@108), val (8@110), secret (32@118).
const targetSize = 150

// buildTree declares the sample descriptor tree. Offsets correspond to
// targetSize's layout above; field sizes are picked to match a handful
// of representative cases (a SELECTION number, an OVERLAY branch, a
// fixed-size STRING array with COUNT/TLN links, a PWD-redacted field)
// so the demo command doubles as a worked example of each.
func buildTree() []*clp.Descriptor {
	m := clp.NewOverlay("M", 0, 1, 10, clp.FlagNone, []*clp.Descriptor{
		clp.NewNumber("A", 0, 1, 2, 5, 1, clp.FlagNone, ""),
		clp.NewString("B", 0, 1, 80, 5, 2, clp.FlagNone, ""),
	})

	arr := clp.NewString("ARR", 0, 4, 5, 88, 20, clp.FlagFixed, "")
	arrCount := clp.NewLink("ARRCNT", "ARR", 1, 85, clp.FlagCount)
	arrTLN := clp.NewLink("ARRTLN", "ARR", 2, 86, clp.FlagTotalLen)

	sub := clp.NewObject("sub", 0, 1, 30, clp.FlagNone, []*clp.Descriptor{
		clp.NewNumber("opt", 0, 1, 2, 108, 31, clp.FlagNone, ""),
	})

	return []*clp.Descriptor{
		clp.NewNumber("NUM08", 0, 1, 1, 0, 1, clp.FlagNone, "23"),
		clp.NewNumber("NUM16", 0, 1, 2, 1, 2, clp.FlagNone, "").WithSelection(
			clp.NewConstantNumber("NUM0", 0, "first selector value", ""),
			clp.NewConstantNumber("NUM1", 1, "second selector value", ""),
			clp.NewConstantNumber("NUM2", 2, "third selector value", ""),
			clp.NewConstantNumber("NUM3", 3, "fourth selector value", ""),
		),
		m,
		arr,
		arrCount,
		arrTLN,
		sub,
		clp.NewNumber("val", 0, 1, 8, 110, 40, clp.FlagNone, ""),
		clp.NewString("secret", 0, 1, 32, 118, 41, clp.FlagPwd, ""),
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "clpdemo",
		Usage: "sample host for the flamclep declarative argument parser",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "tui", Usage: "browse the descriptor tree interactively"},
			&cli.BoolFlag{Name: "syntax", Usage: "print the syntax diagram and exit"},
			&cli.BoolFlag{Name: "help-tree", Usage: "print the one-line help summary and exit"},
			&cli.BoolFlag{Name: "docu", Usage: "print the full manual and exit"},
			&cli.BoolFlag{Name: "properties", Usage: "print the property-file skeleton and exit"},
			&cli.StringFlag{Name: "props", Usage: "property-list text applied before the command"},
			&cli.StringFlag{Name: "props-file", Usage: "property-list file applied before the command"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ context.Context, cmd *cli.Command) error {
	cfg, err := hostcfg.Load()
	if err != nil {
		return fmt.Errorf("clpdemo: loading config: %w", err)
	}
	cfg.ApplyEnv(nil)

	buf := make([]byte, targetSize)
	h, err := clp.Open(buildTree(), buf, clp.Options{
		CaseSensitive:    cfg.Behavior.CaseSensitive,
		ParameterFilesOK: cfg.Behavior.ParameterFilesOK,
		EnvSubstOK:       cfg.Behavior.EnvSubstOK,
		MinKeywordLength: cfg.Behavior.MinKeywordLength,
		Owner:            cfg.Identity.Owner,
		Program:          cfg.Identity.Program,
		Build:            cfg.Identity.Build,
		Strict:           cfg.Behavior.Strict,
	})
	if err != nil {
		return fmt.Errorf("clpdemo: opening parser: %w", err)
	}
	defer h.Close(clp.CloseAll)

	switch {
	case cmd.Bool("syntax"):
		return printPage(h, "", (*clp.Handle).Syntax)
	case cmd.Bool("help-tree"):
		return printPage(h, "", (*clp.Handle).Help)
	case cmd.Bool("docu"):
		fmt.Println(h.Docu())
		return nil
	case cmd.Bool("properties"):
		fmt.Println(h.Properties())
		return nil
	case cmd.Bool("tui"):
		return introspect.NewBrowser(h).Run()
	}

	if props := cmd.String("props-file"); props != "" {
		data, err := os.ReadFile(props) // #nosec G304 -- user-specified property file
		if err != nil {
			return fmt.Errorf("clpdemo: reading %s: %w", props, err)
		}
		if err := h.ParseProperties(string(data), props); err != nil {
			return err
		}
	}
	if props := cmd.String("props"); props != "" {
		if err := h.ParseProperties(props, "--props"); err != nil {
			return err
		}
	}

	args := cmd.Args().Slice()
	if len(args) == 0 {
		fmt.Println(h.Docu())
		return nil
	}
	command := args[0]
	for _, a := range args[1:] {
		command += " " + a
	}

	if _, err := h.ParseCommand("argv", command); err != nil {
		return err
	}
	if err := h.ApplyDefaults(nil); err != nil {
		return err
	}

	for _, entry := range h.ParsedList() {
		fmt.Println(entry)
	}
	return nil
}

// printPage renders fn's output for path (empty selects the whole tree).
func printPage(h *clp.Handle, path string, fn func(*clp.Handle, string) (string, error)) error {
	text, err := fn(h, path)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
