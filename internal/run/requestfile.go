// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// RequestFile is the on-disk representation of a run request. An editor
// can keep the issue recipe (verticals, window, voice, focus entities)
// in a versioned file instead of retyping flags.
type RequestFile struct {
	Mode          string              `yaml:"mode,omitempty"`
	Verticals     []string            `yaml:"verticals,omitempty"`
	From          string              `yaml:"from,omitempty"`
	To            string              `yaml:"to,omitempty"`
	Voice         string              `yaml:"voice,omitempty"`
	Region        string              `yaml:"region,omitempty"`
	Style         string              `yaml:"style,omitempty"`
	FocusEntities map[string][]string `yaml:"focus_entities,omitempty"`

	BaseRun           string `yaml:"base_run,omitempty"`
	TargetVertical    string `yaml:"target_vertical,omitempty"`
	UpdateInstruction string `yaml:"update_instruction,omitempty"`
}

const dateFmt = "2006-01-02"

// ReadRequestFile loads a run request from a YAML file.
func ReadRequestFile(path string) (*RequestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	var rf RequestFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing request file: %w", err)
	}
	return &rf, nil
}

// ToParams converts a request file into run parameters.
func (rf *RequestFile) ToParams() (Params, error) {
	p := Params{
		Mode:              types.RunMode(rf.Mode),
		Verticals:         rf.Verticals,
		Voice:             rf.Voice,
		Region:            rf.Region,
		Style:             rf.Style,
		FocusEntities:     rf.FocusEntities,
		BaseRunID:         rf.BaseRun,
		TargetVertical:    rf.TargetVertical,
		UpdateInstruction: rf.UpdateInstruction,
	}
	if p.Mode == "" {
		p.Mode = types.ModeGenerate
	}
	if rf.From != "" {
		t, err := time.Parse(dateFmt, rf.From)
		if err != nil {
			return p, fmt.Errorf("invalid from date %q: %w", rf.From, err)
		}
		p.Window.Start = t
	}
	if rf.To != "" {
		t, err := time.Parse(dateFmt, rf.To)
		if err != nil {
			return p, fmt.Errorf("invalid to date %q: %w", rf.To, err)
		}
		p.Window.End = t
	}
	return p, nil
}
