package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spigell/resume-matcher/internal/document"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/pdftext"
	"github.com/spigell/resume-matcher/internal/server"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	errMissingData = errors.New("job description and resume data are required")
	errOnlyPDF     = errors.New("only pdf files are allowed")
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a résumé against a job description once and exit",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("jd", "", "file with the job description: plain text or a json object. Prompted for when unset")
	scoreCmd.Flags().String("resume", "", "file with the résumé: plain text or a json object")
	scoreCmd.Flags().String("pdf", "", "a résumé pdf merged into the résumé")
}

func score(cmd *cobra.Command) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	jd, err := readDocument(cmd.Flag("jd").Value.String())
	if err != nil {
		logger.Fatal("reading job description", zap.Error(err))
	}

	if jd.IsEmpty() && isTerminal(os.Stdin) {
		jd, err = promptJobDescription()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	resume, err := readDocument(cmd.Flag("resume").Value.String())
	if err != nil {
		logger.Fatal("reading resume", zap.Error(err))
	}

	scorer, err := newScorer(ctx, config, logger)
	if err != nil {
		logger.Fatal("building a scorer", zap.Error(err))
	}

	extractor, err := pdftext.New(config.PDF.Backend)
	if err != nil {
		logger.Fatal("building a pdf extractor", zap.Error(err))
	}

	result, err := scoreDocuments(ctx, scorer, extractor, jd, resume, cmd.Flag("pdf").Value.String())
	if err != nil {
		logger.Fatal("scoring", zap.Error(err))
	}

	logger.Info("scored", zap.Float64("score", result))
	fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", result)
}

// scoreDocuments runs the same pipeline as the /get_score handler.
func scoreDocuments(ctx context.Context, scorer server.Scorer, extractor pdftext.Extractor, jd, resume *document.Document, pdfPath string) (float64, error) {
	pdfPath = strings.TrimSpace(pdfPath)

	if pdfPath != "" && !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		return 0, fmt.Errorf("%w: %s", errOnlyPDF, pdfPath)
	}

	if jd.IsEmpty() || (resume.IsEmpty() && pdfPath == "") {
		return 0, errMissingData
	}

	if resume == nil {
		resume = document.New()
	}

	if pdfPath != "" {
		text, err := extractFile(ctx, extractor, pdfPath)
		if err != nil {
			return 0, fmt.Errorf("failed to process pdf: %w", err)
		}
		resume.Set(document.PDFSection, document.Text(text))
	}

	jdText, resumeText := document.Flatten(jd), document.Flatten(resume)
	if jdText == "" || resumeText == "" {
		return 0, errMissingData
	}

	return scorer.Score(ctx, jdText, resumeText)
}

func extractFile(ctx context.Context, extractor pdftext.Extractor, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	return extractor.Extract(ctx, f, info.Size())
}

// readDocument reads a plain text or json file. An empty path yields nil.
func readDocument(path string) (*document.Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	return document.Parse(data), nil
}

func promptJobDescription() (*document.Document, error) {
	prompt := promptui.Prompt{
		Label: "Job description",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("job description is required")
			}
			return nil
		},
	}

	input, err := prompt.Run()
	if err != nil {
		return nil, err
	}

	return document.Parse([]byte(input)), nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
