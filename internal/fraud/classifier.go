// Package fraud runs the external record validator and decodes its verdict.
package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"marathononline/training-api/internal/config"
	"marathononline/training-api/internal/domain"

	"github.com/rs/zerolog/log"
)

const (
	beginMarker = "--- BEGIN JSON RESULT ---"
	endMarker   = "--- END JSON RESULT ---"
)

var ErrNoResult = errors.New("validator output contains no JSON result")

// Result is the validator verdict. FraudRisk is nil when the script omitted it.
type Result struct {
	ApprovalStatus domain.ApprovalStatus `json:"approvalStatus"`
	FraudRisk      *float64              `json:"fraudRisk"`
	FraudType      string                `json:"fraudType"`
	ReviewNote     string                `json:"reviewNote"`
}

// Classifier scores a canonical record for fraud.
type Classifier interface {
	Classify(ctx context.Context, record *domain.Record) (*Result, error)
}

// ScriptClassifier invokes `<python> <script> <record.json> --file --userId <id>` and reads
// the verdict from combined stdout/stderr.
type ScriptClassifier struct {
	pythonPath string
	scriptPath string
	workDir    string
	timeout    time.Duration
}

func NewScriptClassifier(cfg config.FraudConfig) *ScriptClassifier {
	return &ScriptClassifier{
		pythonPath: cfg.PythonPath,
		scriptPath: cfg.ScriptPath,
		workDir:    cfg.WorkDir,
		timeout:    cfg.Timeout,
	}
}

// payload is the record as the validator reads it: the owner nested under
// "user" and the start of the activity as "timestamp".
type payload struct {
	ID        string      `json:"id"`
	User      payloadUser `json:"user"`
	Steps     *int        `json:"steps"`
	Distance  *float64    `json:"distance"`
	TimeTaken *int64      `json:"timeTaken"`
	AvgSpeed  *float64    `json:"avgSpeed"`
	HeartRate *float64    `json:"heartRate"`
	Timestamp string      `json:"timestamp"`
}

type payloadUser struct {
	ID string `json:"id"`
}

func newPayload(record *domain.Record) payload {
	return payload{
		ID:        record.ID.Hex(),
		User:      payloadUser{ID: record.UserID.Hex()},
		Steps:     record.Steps,
		Distance:  record.Distance,
		TimeTaken: record.TimeTaken,
		AvgSpeed:  record.AvgSpeed,
		HeartRate: record.HeartRate,
		Timestamp: record.StartTime.UTC().Format(time.RFC3339),
	}
}

func (c *ScriptClassifier) Classify(ctx context.Context, record *domain.Record) (*Result, error) {
	body, err := json.Marshal(newPayload(record))
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	if c.workDir != "" {
		if err := os.MkdirAll(c.workDir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare work dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(c.workDir, "record_*.json")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	script, err := filepath.Abs(c.scriptPath)
	if err != nil {
		return nil, err
	}
	input, err := filepath.Abs(tmp.Name())
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, c.pythonPath, script, input, "--file", "--userId", record.UserID.Hex())
	cmd.Dir = c.workDir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err = cmd.Run()
	log.Debug().Str("recordId", record.ID.Hex()).Int("bytes", out.Len()).Err(err).Msg("record validator finished")
	if err != nil {
		return nil, fmt.Errorf("run validator: %w", err)
	}
	return ParseOutput(out.String())
}

// ExtractJSON returns the text between the result markers or, failing that,
// everything from the last '{'.
func ExtractJSON(output string) (string, bool) {
	begin := strings.Index(output, beginMarker)
	end := strings.Index(output, endMarker)
	if begin != -1 && end != -1 && begin < end {
		return strings.TrimSpace(output[begin+len(beginMarker) : end]), true
	}
	if i := strings.LastIndex(output, "{"); i != -1 {
		return strings.TrimSpace(output[i:]), true
	}
	return "", false
}

// ParseOutput decodes the validator verdict. Unknown statuses become PENDING.
func ParseOutput(output string) (*Result, error) {
	raw, ok := ExtractJSON(output)
	if !ok {
		return nil, ErrNoResult
	}
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decode validator result: %w", err)
	}
	switch res.ApprovalStatus {
	case domain.ApprovalApproved, domain.ApprovalRejected:
	default:
		res.ApprovalStatus = domain.ApprovalPending
	}
	return &res, nil
}
