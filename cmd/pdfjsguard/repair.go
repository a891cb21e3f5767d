// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	jsguard "github.com/sassoftware/viya-pdf-jsguard"
)

var outputPath string

var repairCmd = &cobra.Command{
	Use:   "repair FILE",
	Short: "Write a structurally repaired copy of a PDF",
	Long: `Repair inserts missing endobj keywords, a missing header and a rebuilt
cross-reference table, trailer and startxref. The input file is not modified.`,
	Args: cobra.ExactArgs(1),
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default FILE with .repaired.pdf suffix)")
}

func runRepair(cmd *cobra.Command, args []string) error {
	cfg, zl, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	in := args[0]
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	r := jsguard.NewRepairer()
	r.Debug = cfg.DebugOn
	out, rep, err := r.RepairWithReport(data)
	if err != nil {
		return err
	}

	dst := outputPath
	if dst == "" {
		dst = strings.TrimSuffix(in, ".pdf") + ".repaired.pdf"
	}
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !rep.Changed() {
		colorGreen.Fprintf(w, "unchanged ")
		fmt.Fprintf(w, "%s -> %s\n", in, dst)
		return nil
	}
	colorYellow.Fprintf(w, "repaired  ")
	fmt.Fprintf(w, "%s -> %s (passes: %s", in, dst, strings.Join(rep.Passes, ", "))
	if n := len(rep.Insertions); n > 0 {
		fmt.Fprintf(w, ", %d endobj inserted", n)
	}
	if rep.Objects > 0 {
		fmt.Fprintf(w, ", %d objects indexed", rep.Objects)
	}
	fmt.Fprintln(w, ")")
	return nil
}
