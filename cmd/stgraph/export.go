package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/stgraph/internal/serialization"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		index  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one window record as a SafeTensors file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := buildPipeline(a.cfg, a.logger)
			if err != nil {
				return err
			}
			rec, err := p.ds.Get(index)
			if err != nil {
				return err
			}
			id, err := serialization.WriteRecord(output, rec)
			if err != nil {
				return err
			}
			a.logger.Info("record exported", "index", index, "path", output, "id", id)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, output)
			return nil
		},
	}
	cmd.Flags().IntVarP(&index, "index", "i", 0, "sample index")
	cmd.Flags().StringVarP(&output, "output", "o", "record.safetensors", "output file")
	return cmd
}

func newShowCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Describe a record file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, meta, err := serialization.ReadRecord(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "id: %s\n", meta.ID)
			for _, k := range rec.Keys() {
				v, _ := rec.Get(k)
				p, _ := rec.Pattern(k)
				fmt.Fprintf(w, "%s: %s %s %q\n", k, v.DType(), v.Shape(), p)
			}
			fmt.Fprintf(w, "%s\n", rec)
			return nil
		},
	}
}
