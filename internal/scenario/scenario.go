package scenario

import (
	"errors"
	"fmt"
)

// Scenario is one synthetic merge-request benchmark: a base repository
// state, a deliberately flawed change submitted as an MR, and the unit
// tests that expose the flaw. Scenarios are immutable after load.
type Scenario struct {
	// ID uniquely identifies the scenario across the suite
	ID string `yaml:"id"`

	// Name is the human-readable title used for the MR
	Name string `yaml:"name"`

	// Description becomes the MR description
	Description string `yaml:"description"`

	// Branch is the feature branch name for the seeded change
	Branch string `yaml:"branch"`

	// CTOInstructions is the free-text review brief handed to the agents
	CTOInstructions string `yaml:"cto_instructions"`

	// TestCommand is executed in the working tree to verify the scenario
	TestCommand string `yaml:"test_command"`

	// ExpectedDifficulty orders scenarios in the report (1 = easiest)
	ExpectedDifficulty int `yaml:"expected_difficulty"`

	// BaseFiles are committed to the target branch before the MR exists
	BaseFiles map[string]string `yaml:"base_files"`

	// TestFiles are committed alongside BaseFiles; kept separate so a
	// scenario's verification is visible at a glance
	TestFiles map[string]string `yaml:"test_files"`

	// SeedDiff is the unified diff representing the submitted change,
	// applied on Branch
	SeedDiff string `yaml:"seed_diff"`
}

// Validate checks that the scenario has everything a run needs.
func (s *Scenario) Validate() error {
	var errs []error

	if s.ID == "" {
		errs = append(errs, errors.New("scenario id must not be empty"))
	}
	if s.Branch == "" {
		errs = append(errs, fmt.Errorf("scenario %s: branch must not be empty", s.ID))
	}
	if s.TestCommand == "" {
		errs = append(errs, fmt.Errorf("scenario %s: test_command must not be empty", s.ID))
	}
	if s.SeedDiff == "" {
		errs = append(errs, fmt.Errorf("scenario %s: seed_diff must not be empty", s.ID))
	}
	if s.ExpectedDifficulty < 1 {
		errs = append(errs, fmt.Errorf("scenario %s: expected_difficulty must be at least 1", s.ID))
	}
	if len(s.BaseFiles) == 0 {
		errs = append(errs, fmt.Errorf("scenario %s: base_files must not be empty", s.ID))
	}
	if len(s.TestFiles) == 0 {
		errs = append(errs, fmt.Errorf("scenario %s: test_files must not be empty", s.ID))
	}

	return errors.Join(errs...)
}

// AllFiles returns the union of base and test files, the content of the
// target branch before the seed diff lands.
func (s *Scenario) AllFiles() map[string]string {
	files := make(map[string]string, len(s.BaseFiles)+len(s.TestFiles))
	for path, content := range s.BaseFiles {
		files[path] = content
	}
	for path, content := range s.TestFiles {
		files[path] = content
	}
	return files
}
