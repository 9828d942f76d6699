package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/recordbind/binding"
	"github.com/kbukum/recordbind/bootstrap"
	"github.com/kbukum/recordbind/mapping"
	"github.com/kbukum/recordbind/pipeline"
	"github.com/kbukum/recordbind/record"
)

type exportFlags struct {
	schema      string
	in, out     string
	compression string
	outCompress string
	header      string
	flushEvery  int
}

func newExportCmd() *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export JSON lines to CSV",
		Long: `Export renders JSON objects, one per line, as CSV records using a YAML
schema. Name-bound schemas get a header row unless --header=off.

Example:
  recordbind export --schema orders.yml --in orders.jsonl --out orders.csv.zst`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, flags)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.schema, "schema", "s", "", "Path to the YAML schema (required)")
	f.StringVarP(&flags.in, "in", "i", "-", "Input JSON lines file, - for stdin")
	f.StringVarP(&flags.out, "out", "o", "-", "Output CSV file, - for stdout")
	f.StringVar(&flags.compression, "compression", "auto", "Input compression: auto, none, gzip, zstd, s2, snappy, lz4")
	f.StringVar(&flags.outCompress, "out-compression", "auto", "Output compression")
	f.StringVar(&flags.header, "header", "auto", "Header row: auto, on or off")
	f.IntVar(&flags.flushEvery, "flush-every", 0, "Flush the output every n rows (0 = default)")
	_ = cmd.MarkFlagRequired("schema")
	addRunFlags(cmd)
	return cmd
}

// normalizing renders rows decoded from JSON, converting their values to
// the schema's column types first.
type normalizing struct {
	*mapping.Schema[mapping.Row]
	def mapping.SchemaDef
}

func (n normalizing) ToRecord(ctx context.Context, r mapping.Row) ([]string, error) {
	r, err := n.def.Normalize(r)
	if err != nil {
		return nil, err
	}
	return n.Schema.ToRecord(ctx, r)
}

func runExport(cmd *cobra.Command, flags exportFlags) error {
	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	def, schema, err := loadSchema(flags.schema)
	if err != nil {
		return err
	}

	in, err := openInput(flags.in, flags.compression, cmd.InOrStdin())
	if err != nil {
		return err
	}
	out, err := createOutput(flags.out, flags.outCompress, cmd.OutOrStdout())
	if err != nil {
		in.Close()
		return err
	}
	app.OnStop(func(context.Context) error { return out.Close() })

	sink, err := record.NewCSVSink(out, csvOptions(app.Cfg.CSV)...)
	if err != nil {
		in.Close()
		return err
	}
	writer, err := binding.NewWriter[mapping.Row](sink, normalizing{Schema: schema, def: def}, app.PipelineOptions("export")...)
	if err != nil {
		in.Close()
		return err
	}
	switch flags.header {
	case "on":
		writer.WithHeader(true)
	case "off":
		writer.WithHeader(false)
	}
	if flags.flushEvery > 0 {
		writer.FlushEvery(flags.flushEvery)
	}

	err = app.RunTask(cmd.Context(), func(ctx context.Context) error {
		rows := pipeline.Filter(pipeline.From[mapping.Row](newJSONLines(in)), func(r mapping.Row) bool {
			return len(r) > 0
		})
		err := writer.Write(ctx, rows.Iter(ctx))
		stats := writer.Stats()
		app.Summary.TrackRun(bootstrap.RunReport{
			Name:     "export",
			RunID:    writer.RunID(),
			Stats:    stats.Stats,
			Written:  stats.Written,
			Captured: writer.CapturedErrors(),
			Err:      err,
		})
		return err
	})
	displaySummary(cmd, app)
	return err
}
