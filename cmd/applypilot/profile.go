package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/types"
)

var loadProfileCmd = &cobra.Command{
	Use:   "load-profile <file>",
	Short: "Load an applicant profile and experience facts from YAML",
	Long: `Reads a YAML file of the form

  profile:
    id: 1            # omit to create a new profile
    name: Jane Doe
    email: jane@example.com
    phone: "555-0100"
    skills: [Go, PostgreSQL]
    resume_path: data/resume.pdf
  facts:
    - text: Built a payments ledger handling 2M transactions a day.
      tags: [backend, payments]

and saves the profile and appends every fact to the experience bank.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoadProfile,
}

func init() {
	rootCmd.AddCommand(loadProfileCmd)
}

// profileFile is the on-disk layout read by load-profile.
type profileFile struct {
	Profile types.ApplicantProfile `json:"profile"`
	Facts   []types.ExperienceFact `json:"facts"`
}

func readProfileFile(path string) (*profileFile, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var pf profileFile
	if err := k.UnmarshalWithConf("", &pf, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if strings.TrimSpace(pf.Profile.Name) == "" {
		return nil, fmt.Errorf("%s: profile.name is required", path)
	}
	for i, f := range pf.Facts {
		if strings.TrimSpace(f.Text) == "" {
			return nil, fmt.Errorf("%s: facts[%d].text is empty", path, i)
		}
	}
	return &pf, nil
}

func runLoadProfile(cmd *cobra.Command, args []string) error {
	pf, err := readProfileFile(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, appOptions{needDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.UpsertProfile(ctx, &pf.Profile); err != nil {
		return err
	}
	for i := range pf.Facts {
		if err := a.db.AddExperienceFact(ctx, &pf.Facts[i]); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %d (%s) with %d facts\n",
		pf.Profile.ID, pf.Profile.Name, len(pf.Facts))
	return nil
}
