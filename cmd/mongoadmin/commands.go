package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pedrohavay/mongoadmin/admin"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAssignments turns key=value arguments into flat params. A value of
// "from..to" becomes a range when ranges is set.
func parseAssignments(args []string, ranges bool) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if ranges {
			if from, to, isRange := strings.Cut(v, ".."); isRange {
				out[k] = map[string]any{"from": from, "to": to}
				continue
			}
		}
		out[k] = v
	}
	return out, nil
}

// readParams merges a JSON object given with --json into key=value params.
func readParams(jsonArg string, args []string) (map[string]any, error) {
	params := map[string]any{}
	if jsonArg != "" {
		if err := json.Unmarshal([]byte(jsonArg), &params); err != nil {
			return nil, fmt.Errorf("--json: %w", err)
		}
		params = admin.Flatten(params)
	}
	kv, err := parseAssignments(args, false)
	if err != nil {
		return nil, err
	}
	for k, v := range kv {
		params[k] = v
	}
	return params, nil
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the resources of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPROPERTIES")
			for _, r := range a.db.Resources() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", r.ID(), r.Name(), len(r.Properties()))
			}
			return tw.Flush()
		},
	}
}

func describeProperty(p *admin.Property) map[string]any {
	out := map[string]any{
		"name":     p.Name(),
		"type":     p.Type().Name(),
		"position": p.Position(),
		"isId":     p.IsID(),
		"isArray":  p.IsArray(),
		"required": p.IsRequired(),
		"visible":  p.IsVisible(),
		"editable": p.IsEditable(),
		"sortable": p.IsSortable(),
	}
	if ref := p.Reference(); ref != "" {
		out["reference"] = ref
	}
	if vals := p.AvailableValues(); vals != nil {
		out["availableValues"] = vals
	}
	if subs := p.SubProperties(); len(subs) > 0 {
		nested := make([]map[string]any, 0, len(subs))
		for _, s := range subs {
			nested = append(nested, describeProperty(s))
		}
		out["subProperties"] = nested
	}
	return out
}

func newPropertiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "properties <resource>",
		Short: "Show the reflected properties of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resource(args[0])
			if err != nil {
				return err
			}
			props := r.Properties()
			out := make([]map[string]any, 0, len(props))
			for _, p := range props {
				out = append(out, describeProperty(p))
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

type listOptions struct {
	filters   []string
	limit     int64
	offset    int64
	sortBy    string
	direction string
	populate  []string
}

func newListCmd(a *app) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List records matching filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resource(args[0])
			if err != nil {
				return err
			}
			raw, err := parseAssignments(opts.filters, true)
			if err != nil {
				return err
			}
			f := admin.NewFilter(raw, r)
			fo := admin.FindOptions{Limit: opts.limit, Offset: opts.offset}
			if opts.sortBy != "" {
				fo.Sort = &admin.Sort{SortBy: opts.sortBy, Direction: opts.direction}
			}
			ctx := cmd.Context()
			records, err := r.Find(ctx, f, fo)
			if err != nil {
				return err
			}
			total, err := r.Count(ctx, f)
			if err != nil {
				return err
			}
			if err := a.populate(cmd, r, records, opts.populate); err != nil {
				return err
			}
			dicts := make([]map[string]any, 0, len(records))
			for _, rec := range records {
				dicts = append(dicts, rec.ToDict())
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"total": total, "records": dicts})
		},
	}
	cmd.Flags().StringArrayVarP(&opts.filters, "filter", "f", nil, "Filter as key=value, or key=from..to for dates")
	cmd.Flags().Int64Var(&opts.limit, "limit", admin.DefaultLimit, "Page size")
	cmd.Flags().Int64Var(&opts.offset, "offset", 0, "Records to skip")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "", "Property to sort by")
	cmd.Flags().StringVar(&opts.direction, "direction", "asc", "Sort direction: asc or desc")
	cmd.Flags().StringSliceVar(&opts.populate, "populate", nil, "Reference properties to populate")
	return cmd
}

// populate resolves each named reference property of r on records.
func (a *app) populate(cmd *cobra.Command, r *admin.Resource, records []*admin.Record, names []string) error {
	for _, name := range names {
		prop := r.Property(name)
		if prop == nil {
			return fmt.Errorf("%s has no property %q", r.Name(), name)
		}
		ref := prop.Reference()
		if ref == "" {
			return fmt.Errorf("property %q is not a reference", name)
		}
		target, err := a.resource(ref)
		if err != nil {
			return err
		}
		if _, err := target.Populate(cmd.Context(), records, prop); err != nil {
			return err
		}
	}
	return nil
}

func newShowCmd(a *app) *cobra.Command {
	var populate []string
	cmd := &cobra.Command{
		Use:   "show <resource> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resource(args[0])
			if err != nil {
				return err
			}
			rec, err := r.FindOne(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if err := a.populate(cmd, r, []*admin.Record{rec}, populate); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec.ToDict())
		},
	}
	cmd.Flags().StringSliceVar(&populate, "populate", nil, "Reference properties to populate")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	var jsonArg string
	cmd := &cobra.Command{
		Use:   "create <resource> [key=value...]",
		Short: "Create a record from flat params",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resource(args[0])
			if err != nil {
				return err
			}
			params, err := readParams(jsonArg, args[1:])
			if err != nil {
				return err
			}
			doc, err := r.Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringVar(&jsonArg, "json", "", "Params as a JSON object")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var jsonArg string
	cmd := &cobra.Command{
		Use:   "update <resource> <id> [key=value...]",
		Short: "Update a record with flat params",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resource(args[0])
			if err != nil {
				return err
			}
			params, err := readParams(jsonArg, args[2:])
			if err != nil {
				return err
			}
			doc, err := r.Update(cmd.Context(), args[1], params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringVar(&jsonArg, "json", "", "Params as a JSON object")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resource(args[0])
			if err != nil {
				return err
			}
			if err := r.Delete(cmd.Context(), args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", r.ID(), args[1])
			return nil
		},
	}
}

type transferOptions struct {
	format string
	path   string
	limit  int64
}

func newExportCmd(a *app) *cobra.Command {
	opts := &transferOptions{}
	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Export records as jsonl, msgpack or csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resource(args[0])
			if err != nil {
				return err
			}
			if opts.limit <= 0 {
				opts.limit = admin.DefaultLimit
			}
			ctx := cmd.Context()
			var records []*admin.Record
			for offset := int64(0); ; {
				page, err := r.Find(ctx, nil, admin.FindOptions{Limit: opts.limit, Offset: offset})
				if err != nil {
					return err
				}
				records = append(records, page...)
				if int64(len(page)) < opts.limit {
					break
				}
				offset += int64(len(page))
			}

			w := cmd.OutOrStdout()
			if opts.path != "" && opts.path != "-" {
				f, err := os.Create(opts.path) //nolint:gosec // path is provided by caller
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck
				w = f
			}
			switch opts.format {
			case "jsonl":
				err = admin.WriteRecordsJSONL(w, records)
			case "msgpack":
				err = admin.WriteRecordsMsgpack(w, records)
			case "csv":
				err = admin.WriteRecordsCSV(w, records)
			default:
				return fmt.Errorf("unknown format %q", opts.format)
			}
			if err != nil {
				return err
			}
			a.logger.Info().Str("resource", r.ID()).Int("records", len(records)).Str("format", opts.format).Msg("exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "jsonl", "Output format: jsonl, msgpack or csv")
	cmd.Flags().StringVarP(&opts.path, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().Int64Var(&opts.limit, "batch", 500, "Records fetched per page")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	opts := &transferOptions{}
	cmd := &cobra.Command{
		Use:   "import <resource>",
		Short: "Create records from a jsonl or msgpack stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resource(args[0])
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if opts.path != "" && opts.path != "-" {
				f, err := os.Open(opts.path) //nolint:gosec // path is provided by caller
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck
				in = f
			}
			ctx := cmd.Context()
			n := 0
			create := func(doc map[string]any) error {
				if _, err := r.Create(ctx, doc); err != nil {
					return fmt.Errorf("record %d: %w", n, err)
				}
				n++
				return nil
			}
			switch opts.format {
			case "jsonl":
				err = admin.ReadRecordsJSONL(in, create)
			case "msgpack":
				err = admin.ReadRecordsMsgpack(in, create)
			default:
				return fmt.Errorf("unknown format %q", opts.format)
			}
			if err != nil {
				return err
			}
			a.logger.Info().Str("resource", r.ID()).Int("records", n).Msg("imported")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "jsonl", "Input format: jsonl or msgpack")
	cmd.Flags().StringVarP(&opts.path, "input", "i", "", "Input file (default stdin)")
	return cmd
}
