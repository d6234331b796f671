package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/domain/errors"
	"github.com/careverify/clinic-trust-engine/internal/infrastructure/config"
	"github.com/careverify/clinic-trust-engine/internal/infrastructure/telemetry"
	"github.com/careverify/clinic-trust-engine/internal/ml/bundle"
	"github.com/careverify/clinic-trust-engine/internal/ml/features"
	"github.com/careverify/clinic-trust-engine/internal/ml/selector"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to configuration file")
		dataPath   = flag.String("data", "", "training dataset (JSON array of clinic records, or CSV for -model=behavior)")
		outPath    = flag.String("out", "", "output bundle path (defaults to the configured path for the model)")
		model      = flag.String("model", "risk", "which model to train: risk or behavior")
		synthetic  = flag.Int("synthetic", 0, "generate N synthetic samples instead of reading -data")
	)
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := telemetry.SetupLogger(cfg.LogLevel)

	sel := selector.New(features.NewEngineer(), selector.Config{
		MinSamples:   cfg.Training.MinSamples,
		TestFraction: cfg.Training.TestFraction,
		Folds:        cfg.Training.Folds,
		Seed:         cfg.Training.Seed,
		Version:      cfg.Training.Version,
	}, logger)

	ctx := context.Background()
	var trained *bundle.Bundle

	switch *model {
	case "risk":
		records, err := loadClinicRecords(*dataPath, *synthetic, cfg.Training.Seed)
		if err != nil {
			log.Fatalf("failed to load training data: %v", err)
		}
		trained, err = sel.Train(ctx, records)
		if err != nil {
			log.Fatalf("training failed: %v", err)
		}
		if *outPath == "" {
			*outPath = cfg.Model.RiskBundlePath
		}
	case "behavior":
		samples, err := loadBehaviorSamples(*dataPath, *synthetic, cfg.Training.Seed)
		if err != nil {
			log.Fatalf("failed to load training data: %v", err)
		}
		trained, err = sel.TrainBehavior(ctx, samples)
		if err != nil {
			log.Fatalf("training failed: %v", err)
		}
		if *outPath == "" {
			*outPath = cfg.Model.BehaviorBundlePath
		}
	default:
		log.Fatalf("unknown model %q, want risk or behavior", *model)
	}

	printReport(trained)

	if err := bundle.Save(trained, *outPath); err != nil {
		log.Fatalf("failed to save bundle: %v", err)
	}
	fmt.Printf("bundle written to %s\n", *outPath)
}

func loadClinicRecords(path string, synthetic int, seed int64) ([]selector.Record, error) {
	if synthetic > 0 {
		return selector.GenerateClinicRecords(synthetic, seed), nil
	}
	if path == "" {
		return nil, fmt.Errorf("either -data or -synthetic is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading training data")
	}
	var records []selector.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// loadBehaviorSamples reads a CSV with the eight snapshot columns plus a
// trailing label column (1 = human, 0 = bot), header row required.
func loadBehaviorSamples(path string, synthetic int, seed int64) ([]selector.BehaviorSample, error) {
	if synthetic > 0 {
		return selector.GenerateBehaviorSamples(synthetic, seed), nil
	}
	if path == "" {
		return nil, fmt.Errorf("either -data or -synthetic is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening training data")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s has no data rows", path)
	}

	header := rows[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range behavior.FeatureColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%s is missing column %q", path, name)
		}
	}
	labelIdx, ok := col["label"]
	if !ok {
		return nil, fmt.Errorf("%s is missing the label column", path)
	}

	samples := make([]selector.BehaviorSample, 0, len(rows)-1)
	for _, row := range rows[1:] {
		get := func(name string) float64 {
			v, _ := strconv.ParseFloat(row[col[name]], 64)
			return v
		}
		samples = append(samples, selector.BehaviorSample{
			Snapshot: behavior.Snapshot{
				MouseMoveCount:     get("mouseMoveCount"),
				KeyPressCount:      get("keyPressCount"),
				TimeOnPageSeconds:  get("timeOnPageSeconds"),
				MouseMoveRate:      get("mouseMoveRate"),
				KeyPressRate:       get("keyPressRate"),
				InteractionBalance: get("interactionBalance"),
				InteractionScore:   get("interactionScore"),
				IdleRatio:          get("idleRatio"),
			},
			IsHuman: row[labelIdx] == "1",
		})
	}
	return samples, nil
}

func printReport(b *bundle.Bundle) {
	fmt.Printf("selected algorithm: %s\n", b.Algorithm)
	fmt.Printf("training samples:   %d\n", b.TrainingSamples)
	for name, score := range b.CVScores {
		fmt.Printf("cv weighted F1 %-20s %.4f\n", name, score)
	}
	if b.Evaluation != nil {
		fmt.Printf("held-out accuracy:    %.4f\n", b.Evaluation.Accuracy)
		fmt.Printf("held-out weighted F1: %.4f\n", b.Evaluation.WeightedF1)
		for _, cm := range b.Evaluation.PerClass {
			fmt.Printf("  %-8s precision %.3f recall %.3f f1 %.3f support %d\n",
				cm.Label, cm.Precision, cm.Recall, cm.F1, cm.Support)
		}
	}
}
