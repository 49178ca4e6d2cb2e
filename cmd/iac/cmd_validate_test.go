package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	csvPath := filepath.Join(tmpDir, "small.csv")
	if err := os.WriteFile(csvPath, []byte(smallMatrixCSV), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		args       []string
		wantOut    string
		wantErrSub string
	}{
		{
			name:    "default source",
			args:    nil,
			wantOut: "builtin:jets-sharks is valid: 68 nodes in 7 blocks",
		},
		{
			name:    "positional name",
			args:    []string{"jets-sharks"},
			wantOut: "jets-sharks is valid: 68 nodes in 7 blocks",
		},
		{
			name:    "csv",
			args:    []string{"--csv", csvPath, "--blocks", "instances:2,gangs:2,names:2"},
			wantOut: "is valid: 6 nodes in 3 blocks",
		},
		{
			name:       "unknown name",
			args:       []string{"nope"},
			wantErrSub: "network not found",
		},
		{
			name:       "block layout too short",
			args:       []string{"--csv", csvPath, "--blocks", "instances:2,gangs:2"},
			wantErrSub: "small.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"validate", "--root", tmpDir}, tt.args...)
			out, err := runCmd(t, newValidateCmd(), args...)
			if tt.wantErrSub != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrSub) {
					t.Errorf("validate error = %v, want containing %q", err, tt.wantErrSub)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("output = %q, want containing %q", out, tt.wantOut)
			}
		})
	}
}

func TestValidateCmd_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := runCmd(t, newValidateCmd(), "validate", "jets-sharks", "--root", tmpDir, "--json")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	var result struct {
		Network  string   `json:"network"`
		Valid    bool     `json:"valid"`
		Problems []string `json:"problems"`
		Nodes    int      `json:"nodes"`
		Blocks   int      `json:"blocks"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Valid || len(result.Problems) != 0 || result.Nodes != 68 || result.Blocks != 7 {
		t.Errorf("result = %+v", result)
	}
}

func TestSplitErrors(t *testing.T) {
	if got := splitErrors(os.ErrNotExist); len(got) != 1 || got[0] != os.ErrNotExist.Error() {
		t.Errorf("splitErrors(single) = %v", got)
	}

	joined := errors.Join(errors.New("first"), errors.New("second"))
	if got := strings.Join(splitErrors(joined), "|"); got != "first|second" {
		t.Errorf("splitErrors(joined) = %s", got)
	}
}
