package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"slices"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kbukum/recordbind/binding"
	"github.com/kbukum/recordbind/bootstrap"
	"github.com/kbukum/recordbind/logger"
	"github.com/kbukum/recordbind/mapping"
	"github.com/kbukum/recordbind/pipeline"
	"github.com/kbukum/recordbind/record"
)

type convertFlags struct {
	schema      string
	in, out     string
	compression string
	outCompress string
	skipBlank   bool
}

func newConvertCmd() *cobra.Command {
	var flags convertFlags
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert CSV records to JSON lines",
		Long: `Convert binds every CSV record to a row described by a YAML schema and
writes one JSON object per line. Output order matches input order unless
--ordered=false.

Example:
  recordbind convert --schema orders.yml --in orders.csv.gz --out orders.jsonl --policy collect`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, flags)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.schema, "schema", "s", "", "Path to the YAML schema (required)")
	f.StringVarP(&flags.in, "in", "i", "-", "Input CSV file, - for stdin")
	f.StringVarP(&flags.out, "out", "o", "-", "Output JSON lines file, - for stdout")
	f.StringVar(&flags.compression, "compression", "auto", "Input compression: auto, none, gzip, zstd, s2, snappy, lz4")
	f.StringVar(&flags.outCompress, "out-compression", "auto", "Output compression")
	f.BoolVar(&flags.skipBlank, "skip-blank", false, "Skip records whose fields are all empty")
	f.Bool("pull", false, "Convert one record per consumer request instead of on a worker pool")
	_ = cmd.MarkFlagRequired("schema")
	addRunFlags(cmd)
	return cmd
}

func loadSchema(path string) (mapping.SchemaDef, *mapping.Schema[mapping.Row], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mapping.SchemaDef{}, nil, err
	}
	def, err := mapping.ParseSchemaDef(data)
	if err != nil {
		return def, nil, err
	}
	schema, err := def.Build()
	return def, schema, err
}

func runConvert(cmd *cobra.Command, flags convertFlags) error {
	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	def, schema, err := loadSchema(flags.schema)
	if err != nil {
		return err
	}
	verifier, err := def.Verifier()
	if err != nil {
		return err
	}

	in, err := openInput(flags.in, flags.compression, cmd.InOrStdin())
	if err != nil {
		return err
	}
	src, err := record.NewCSVSource(in, csvOptions(app.Cfg.CSV)...)
	if err != nil {
		in.Close()
		return err
	}
	out, err := createOutput(flags.out, flags.outCompress, cmd.OutOrStdout())
	if err != nil {
		src.Close()
		return err
	}
	app.OnStop(func(context.Context) error { return out.Close() })

	reader, err := binding.NewReader[mapping.Row](src, schema, app.PipelineOptions("convert")...)
	if err != nil {
		src.Close()
		return err
	}
	if verifier != nil {
		reader.Verify(verifier)
	}
	if flags.skipBlank {
		reader.Filter(func(r record.Record) bool {
			return slices.ContainsFunc(r.Fields, func(f string) bool { return f != "" })
		})
	}

	err = app.RunTask(cmd.Context(), func(ctx context.Context) error {
		err := convertRows(ctx, app, reader, out)
		stats := reader.Stats()
		app.Summary.TrackRun(bootstrap.RunReport{
			Name:     "convert",
			RunID:    reader.RunID(),
			Stats:    stats.Stats,
			LastLine: stats.LastLine,
			Captured: reader.CapturedErrors(),
			Err:      err,
		})
		return err
	})
	displaySummary(cmd, app)
	return err
}

func convertRows(ctx context.Context, app *bootstrap.App, reader *binding.Reader[mapping.Row], out io.Writer) error {
	var rows pipeline.Iterator[mapping.Row]
	if app.Cfg.Pipeline.Pull {
		seq, err := reader.Iterator(ctx)
		if err != nil {
			return err
		}
		rows = seq.Iter()
	} else {
		rows = reader.Stream(ctx)
	}

	w := bufio.NewWriter(out)
	lines := pipeline.Map(pipeline.From(rows), func(_ context.Context, r mapping.Row) ([]byte, error) {
		return gojson.Marshal(r)
	})
	err := pipeline.ForEach(ctx, lines, func(_ context.Context, line []byte) error {
		if _, err := w.Write(line); err != nil {
			return err
		}
		return w.WriteByte('\n')
	})
	if flushErr := w.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		app.Logger.Debug("convert stopped", logger.ErrorFields("convert", err))
	}
	return err
}
