package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/extract"
	"github.com/joseph-ayodele/medscan/internal/ocr"
	"github.com/joseph-ayodele/medscan/internal/pipeline"
	repo "github.com/joseph-ayodele/medscan/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		kindStr  = flag.String("kind", "auto", "document kind: lab | medication | auto")
		validate = flag.Bool("validate", true, "check the result against its JSON schema")
		save     = flag.Bool("save", false, "store the result as a pending proposal")
		compact  = flag.Bool("compact", false, "print single-line JSON")
	)
	flag.Usage = func() {
		printError("usage: medscan [flags] [file | -]\n\nReads a lab report or medication label (PDF, image, text) or a transcript on stdin\nand prints the proposed record as JSON.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	kind, ok := constants.CanonicalizeKind(*kindStr)
	if !ok {
		printError("Error: unknown --kind %q\n", *kindStr)
		os.Exit(2)
	}
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the JSON result
	logger := common.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	textExtractor := extract.NewOCRAdapter(ocr.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger), logger)
	opts := []pipeline.Option{}
	if *save {
		db, err := repo.Open(ctx, repo.ConfigFrom(cfg.Store), logger)
		if err != nil {
			logger.Error("open db", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		opts = append(opts, pipeline.WithStore(repo.NewProposalRepository(db, logger)))
	}
	p := pipeline.NewProcessor(logger,
		pipeline.NewOCRStage(textExtractor, logger),
		pipeline.NewParseStage(extract.NewEngine(extract.WithLogger(logger)), *validate, logger),
		opts...,
	)

	var out pipeline.Outcome
	if path := flag.Arg(0); path != "" && path != "-" {
		out, err = p.ProcessFile(ctx, path, kind)
	} else {
		var raw []byte
		raw, err = io.ReadAll(os.Stdin)
		if err == nil {
			out, err = p.ProcessText(ctx, "stdin", string(raw), kind)
		}
	}
	if err != nil {
		logger.Error("extraction failed", "error", err, "code", common.ErrorCode(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	if !*compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out.Result.Payload()); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	if out.Proposal != nil {
		logger.Info("proposal saved", "proposal_id", out.Proposal.ID, "status", out.Proposal.Status)
	}
}
