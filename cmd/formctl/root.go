package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yanizio/formcheck/internal/form"
	"github.com/yanizio/formcheck/internal/validation"
)

// errInvalid marks a record that failed validation.  It is reported through
// the exit status only.
var errInvalid = errors.New("record is invalid")

const (
	checkMark = "✓"
	crossMark = "✗"
)

type cli struct {
	in       io.Reader
	out, err io.Writer
	formsDir string
}

// newRootCmd builds the command tree.  Streams are injected for tests.
func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, err: errOut}

	root := &cobra.Command{
		Use:           "formctl",
		Short:         "Validate records against formcheck form definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.formsDir, "forms-dir", "", "directory of form YAML overriding the built-ins")

	root.AddCommand(c.formsCmd(), c.validateCmd(), c.feedbackCmd(), c.lintCmd())
	return root
}

// registry loads the built-ins plus --forms-dir.
func (c *cli) registry() (*form.Registry, error) {
	reg := form.NewRegistry()
	if err := reg.Load(c.formsDir); err != nil {
		return nil, err
	}
	return reg, nil
}

func (c *cli) lookup(id string) (*form.Form, error) {
	reg, err := c.registry()
	if err != nil {
		return nil, err
	}
	return reg.Get(id)
}

/*──────────────────────────── forms ───────────────────────────────────────*/

func (c *cli) formsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List known forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := c.registry()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tFIELDS")
			for _, f := range reg.List() {
				names := make([]string, 0, len(f.Def.Fields))
				for _, fd := range f.Def.Fields {
					names = append(names, fd.Name)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Def.ID, f.Def.Title, strings.Join(names, ","))
			}
			return tw.Flush()
		},
	}
}

/*──────────────────────────── validate ────────────────────────────────────*/

func (c *cli) validateCmd() *cobra.Command {
	var formID string
	cmd := &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Validate a JSON record and print the result",
		Long: `Validate a flat JSON object of strings against a form.

The record is read from the named file, or from stdin when the argument is
"-" or omitted.  The result is printed as JSON.  The exit status is 1 when
any field is invalid.

Examples:
  formctl validate --form signup record.json
  echo '{"username":"a","email":"a@b.co","password":"x","confirmPassword":"x"}' | formctl validate --form signup`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.lookup(formID)
			if err != nil {
				return err
			}

			src := c.in
			if len(args) == 1 && args[0] != "-" {
				fh, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer fh.Close()
				src = fh
			}

			rec, err := form.RecordFromJSON(src)
			if err != nil {
				return err
			}
			res, err := f.Schema.Validate(rec)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.IsValid() {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&formID, "form", "signup", "form id")
	return cmd
}

/*──────────────────────────── feedback ────────────────────────────────────*/

func (c *cli) feedbackCmd() *cobra.Command {
	var (
		formID, field string
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "feedback <value>",
		Short: "Show the live rule checklist for one field value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.lookup(formID)
			if err != nil {
				return err
			}
			fb, err := f.Schema.Feedback(field, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(c.out).Encode(fb)
			}
			printFeedback(c.out, fb)
			return nil
		},
	}
	cmd.Flags().StringVar(&formID, "form", "signup", "form id")
	cmd.Flags().StringVar(&field, "field", validation.FieldPassword, "field name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a checklist")
	return cmd
}

func printFeedback(w io.Writer, fb validation.Feedback) {
	if !fb.Visible {
		fmt.Fprintln(w, "(empty value, checklist hidden)")
		return
	}
	for _, r := range fb.Rules {
		mark := crossMark
		if r.Passed {
			mark = checkMark
		}
		fmt.Fprintf(w, "  %s %s\n", mark, r.Label)
	}
}

/*──────────────────────────── lint ────────────────────────────────────────*/

func (c *cli) lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <dir>",
		Short: "Parse and compile every form definition in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}
			reg := form.NewRegistry()
			if err := reg.Load(args[0]); err != nil {
				return err
			}
			for _, f := range reg.List() {
				fmt.Fprintf(c.out, "  %s %s (%d fields)\n", checkMark, f.Def.ID, len(f.Def.Fields))
			}
			return nil
		},
	}
}
