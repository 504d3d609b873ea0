// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/goodnews-engine/internal/classify"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Score a title and body against the rubric",
	Long: `Classify runs the content classifier on ad hoc text and prints the
category, score, impact tier, tags and accept decision. No network or
storage is used.`,
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	body, _ := cmd.Flags().GetString("body")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if strings.TrimSpace(title) == "" && strings.TrimSpace(body) == "" {
		return fmt.Errorf("--title or --body is required")
	}

	return formatClassification(cmd.OutOrStdout(), classify.Classify(title, body), jsonOutput)
}

func formatClassification(w io.Writer, c types.Classification, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}

	decision := "reject"
	if c.Accept {
		decision = "accept"
	}
	fmt.Fprintf(w, "Category: %s\n", c.Category)
	fmt.Fprintf(w, "Score:    %.1f\n", c.Score)
	fmt.Fprintf(w, "Impact:   %s\n", c.Impact)
	fmt.Fprintf(w, "Tags:     %s\n", strings.Join(c.Tags, ", "))
	fmt.Fprintf(w, "Decision: %s\n", decision)
	return nil
}

func init() {
	classifyCmd.Flags().String("title", "", "article title")
	classifyCmd.Flags().String("body", "", "article body or description")
	classifyCmd.Flags().Bool("json", false, "output the classification as JSON")

	rootCmd.AddCommand(classifyCmd)
}
