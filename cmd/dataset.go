package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"facegate/internal/config"
	"facegate/internal/identity"
	"facegate/internal/vision"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Inspect the enrollment dataset",
}

var datasetCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every enrollment trains a usable face model",
	Long: `Run every enrolled image through the face detector and report
credentials whose photo set would fail training on the device. Use this
after enrolling someone to catch bad photos before they reach the door.`,
	RunE: runDatasetCheck,
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetCheckCmd)
}

func runDatasetCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	store := identity.NewStore(cfg.Dataset.Dir)
	credentials, err := store.Credentials()
	if err != nil {
		return fmt.Errorf("listing enrollments: %w", err)
	}
	if len(credentials) == 0 {
		fmt.Printf("No enrollments found in %s\n", cfg.Dataset.Dir)
		return nil
	}

	detector := vision.NewClient(cfg.Detector.URL, cfg.Detector.ScaleFactor, cfg.Detector.MinNeighbors)
	ctx := context.Background()

	bar := progressbar.NewOptions(len(credentials),
		progressbar.OptionSetDescription("Checking enrollments"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("people"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	type problem struct {
		credential string
		name       string
		detail     string
	}
	var problems []problem

	for _, credential := range credentials {
		id, err := store.Resolve(credential)
		if err != nil {
			problems = append(problems, problem{credential, "?", fmt.Sprintf("unreadable enrollment: %v", err)})
			_ = bar.Add(1)
			continue
		}

		images := id.Images()
		if len(images) == 0 {
			problems = append(problems, problem{credential, id.DisplayName, "no decodable images"})
			_ = bar.Add(1)
			continue
		}

		usable := 0
		for _, img := range images {
			faces, err := detector.Detect(ctx, img)
			if err != nil {
				return fmt.Errorf("detector unreachable: %w", err)
			}
			if face := vision.LargestFace(faces); face != nil && len(face.Embedding) > 0 {
				usable++
			}
		}
		if usable == 0 {
			problems = append(problems, problem{credential, id.DisplayName, fmt.Sprintf("no face found in %d images", len(images))})
		}
		_ = bar.Add(1)
	}
	fmt.Println()

	if len(problems) == 0 {
		fmt.Printf("All %d enrollments train successfully.\n", len(credentials))
		return nil
	}

	fmt.Printf("%d of %d enrollments would fail on the device:\n", len(problems), len(credentials))
	for _, p := range problems {
		fmt.Printf("  %s (%s): %s\n", p.credential, p.name, p.detail)
	}
	return fmt.Errorf("%d enrollments need new photos", len(problems))
}
