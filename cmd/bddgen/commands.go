package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/bddgen/internal/bdd"
	"github.com/dgallion1/bddgen/internal/pipeline"
)

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze FILE",
		Short: "Suggest a category for a requirements document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			o := opts.session(cmd)
			if err := o.SelectDocument(doc); err != nil {
				return err
			}
			res, err := o.Analyze(cmd.Context())
			var ae *bdd.AnalysisError
			switch {
			case errors.As(err, &ae):
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", ae)
			case err != nil:
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "File:\t%s (%s)\n", doc.Filename(), doc.Format())
			suggested := "none"
			if res.SuggestedCategory != nil {
				suggested = string(*res.SuggestedCategory)
			}
			fmt.Fprintf(tw, "Suggested:\t%s\n", suggested)
			if len(res.Scores) > 0 {
				fmt.Fprintln(tw, "Scores:")
				for _, cat := range bdd.Categories {
					if v, ok := res.Scores[cat]; ok {
						fmt.Fprintf(tw, "  %s\t%.2f\n", cat, v)
					}
				}
			}
			return tw.Flush()
		},
	}
}

func newFeatureCmd(opts *options) *cobra.Command {
	var category, out string
	cmd := &cobra.Command{
		Use:   "feature FILE",
		Short: "Convert a requirements document into a Gherkin feature",
		Long: `Convert a requirements document into a Gherkin feature. Without --type the
analyzer's suggestion is used; when there is none the command fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := opts.session(cmd)
			art, err := generateFeature(cmd, o, args[0], category)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, art.Content)
		},
	}
	cmd.Flags().StringVarP(&category, "type", "t", "", `document category: BRD, FRD, "User Story" or "Test Case"`)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the feature here instead of stdout")
	return cmd
}

func newStepsCmd(opts *options) *cobra.Command {
	var lang, framework, out string
	cmd := &cobra.Command{
		Use:   "steps FEATURE_FILE|-",
		Short: "Generate step definitions for a Gherkin feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readFeature(cmd, args[0])
			if err != nil {
				return err
			}
			o := opts.session(cmd)
			o.SetFeatureText(text)
			o.SelectLanguage(bdd.NewTarget(lang, framework))
			art, err := o.GenerateSteps(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, renderSteps(art))
		},
	}
	addTargetFlags(cmd, &lang, &framework)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the step definitions here instead of stdout")
	return cmd
}

func newConvertCmd(opts *options) *cobra.Command {
	var category, lang, framework, featureOut, out string
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Run the whole workflow: document to feature to step definitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := bdd.NewTarget(lang, framework)
			if err := target.Validate(); err != nil {
				return err
			}

			o := opts.session(cmd)
			feature, err := generateFeature(cmd, o, args[0], category)
			if err != nil {
				return err
			}
			if err := o.UseGeneratedFeature(); err != nil {
				return err
			}
			o.SelectLanguage(target)
			steps, err := o.GenerateSteps(cmd.Context())
			if err != nil {
				return err
			}

			if featureOut == "" && out == "" {
				return writeOutput(cmd, "", feature.Content+"\n"+renderSteps(steps))
			}
			if err := writeOutput(cmd, featureOut, feature.Content); err != nil {
				return err
			}
			return writeOutput(cmd, out, renderSteps(steps))
		},
	}
	cmd.Flags().StringVarP(&category, "type", "t", "", `document category: BRD, FRD, "User Story" or "Test Case"`)
	addTargetFlags(cmd, &lang, &framework)
	cmd.Flags().StringVar(&featureOut, "feature-out", "", "write the feature here")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the step definitions here")
	return cmd
}

func addTargetFlags(cmd *cobra.Command, lang, framework *string) {
	langs := make([]string, len(bdd.Languages))
	for i, l := range bdd.Languages {
		langs[i] = string(l)
	}
	cmd.Flags().StringVarP(lang, "lang", "l", "", "target language: "+strings.Join(langs, ", "))
	cmd.Flags().StringVarP(framework, "framework", "f", "", "BDD framework (default: the language's first compatible one)")
	cmd.MarkFlagRequired("lang")
}

// generateFeature runs the feature pipeline for the document at path. An
// empty category means "use the analyzer's suggestion".
func generateFeature(cmd *cobra.Command, o *pipeline.Orchestrator, path, category string) (*bdd.FeatureArtifact, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	if err := o.SelectDocument(doc); err != nil {
		return nil, err
	}

	var cat bdd.DocumentCategory
	if category != "" {
		if cat, err = bdd.ParseCategory(category); err != nil {
			return nil, err
		}
	} else {
		res, err := o.Analyze(cmd.Context())
		var ae *bdd.AnalysisError
		switch {
		case errors.As(err, &ae):
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", ae)
		case err != nil:
			return nil, err
		}
		if res != nil && res.SuggestedCategory != nil {
			cat = *res.SuggestedCategory
			fmt.Fprintf(cmd.ErrOrStderr(), "using suggested category %s\n", cat)
		}
	}

	if cat != "" {
		if err := o.ConfirmCategory(cat); err != nil {
			return nil, err
		}
	}
	art, err := o.GenerateFeature(cmd.Context())
	if err != nil && category == "" && errors.Is(err, bdd.ErrPrecondition) {
		return nil, fmt.Errorf("%w; no category was suggested, pass --type", err)
	}
	return art, err
}

// renderSteps lays out imports, setup code and the definitions sorted by
// step pattern.
func renderSteps(art *bdd.StepDefinitionArtifact) string {
	var b strings.Builder
	for _, imp := range art.Imports {
		b.WriteString(imp)
		b.WriteString("\n")
	}
	if len(art.Imports) > 0 {
		b.WriteString("\n")
	}
	if art.SetupCode != "" {
		b.WriteString(strings.TrimRight(art.SetupCode, "\n"))
		b.WriteString("\n\n")
	}
	for i, pattern := range slices.Sorted(maps.Keys(art.StepDefinitions)) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimRight(art.StepDefinitions[pattern], "\n"))
		b.WriteString("\n")
	}
	return b.String()
}
