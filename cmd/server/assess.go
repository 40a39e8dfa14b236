package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mindmate/internal/crisis"
)

type assessResult struct {
	Text string `json:"text"`
	crisis.Assessment
}

func newAssessCmd(a *app) *cobra.Command {
	var failOn string
	cmd := &cobra.Command{
		Use:   "assess [text...]",
		Short: "Screen text for crisis language",
		Long: `Screen text for crisis language and print one JSON assessment per input.

With arguments, the arguments are joined into a single message. Without
arguments every non-empty line of standard input is screened separately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var threshold crisis.Severity
			if failOn != "" {
				lvl, err := crisis.ParseSeverity(failOn)
				if err != nil {
					return fmt.Errorf("--fail-on: %w", err)
				}
				threshold = lvl
			}
			assessor, err := crisis.Load(a.cfg.Crisis.LexiconFile)
			if err != nil {
				return fmt.Errorf("load crisis lexicon: %w", err)
			}

			var inputs []string
			if len(args) > 0 {
				inputs = []string{strings.Join(args, " ")}
			} else {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					if line := strings.TrimSpace(sc.Text()); line != "" {
						inputs = append(inputs, line)
					}
				}
				if err := sc.Err(); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			worst := crisis.None
			for _, in := range inputs {
				res := assessor.Assess(in)
				worst = crisis.Raise(worst, res.Level)
				if err := enc.Encode(assessResult{Text: in, Assessment: res}); err != nil {
					return err
				}
			}
			if threshold > crisis.None && worst >= threshold {
				return &thresholdError{worst: worst, threshold: threshold}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit non-zero if any input reaches this level (LOW, MEDIUM, HIGH, CRITICAL)")
	return cmd
}

type thresholdError struct {
	worst, threshold crisis.Severity
}

func (e *thresholdError) Error() string {
	return fmt.Sprintf("assessment reached %s (threshold %s)", e.worst, e.threshold)
}

func isThreshold(err error) bool {
	var te *thresholdError
	return errors.As(err, &te)
}
