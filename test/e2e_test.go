package test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/ccollicutt/chatlog/internal/cli"
	"github.com/ccollicutt/chatlog/internal/cli/commands"
	"github.com/ccollicutt/chatlog/pkg/config"
	"github.com/ccollicutt/chatlog/pkg/detector"
	"github.com/ccollicutt/chatlog/pkg/output"
	"github.com/ccollicutt/chatlog/pkg/parser"
	"github.com/ccollicutt/chatlog/pkg/resolver"
	"github.com/ccollicutt/chatlog/pkg/webhook"
)

var (
	projectRoot string
	rootOnce    sync.Once
)

const (
	familyTranscript = "testdata/transcripts/family_group.txt"
	travelTranscript = "testdata/transcripts/travel_dayfirst.txt"
)

// chdir changes to the project root directory for tests.
// Config files use paths relative to project root.
func chdir(t *testing.T) {
	t.Helper()
	rootOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		projectRoot = filepath.Dir(filepath.Dir(filename))
	})
	if err := os.Chdir(projectRoot); err != nil {
		t.Fatalf("Failed to chdir to project root: %v", err)
	}
	clearEnv(t)
}

// clearEnv stops CHATLOG_* variables in the caller's shell leaking into runs.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvTranscripts, "")
	t.Setenv(config.EnvDateLayout, "")
	t.Setenv(config.EnvLogLevel, "")
}

// requireFile fails the test if the required test file doesn't exist.
// We never skip tests - missing test data is a test failure.
func requireFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Required test file not found: %s", path)
	}
}

// runCLI runs the chatlog root command in-process and returns its stdout
// and exit code.
func runCLI(t *testing.T, args ...string) (string, int, error) {
	t.Helper()
	commands.ExitCode = 0

	root := cli.NewRootCommand()
	root.SetArgs(args)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), commands.ExitCode, err
}

// parseFiles runs the parse pipeline the way the parse command does.
func parseFiles(t *testing.T, cfg *config.Config) ([]*resolver.Message, parser.Stats) {
	t.Helper()

	files, err := parser.ExpandGlobs(cfg.Transcripts)
	if err != nil {
		t.Fatalf("Failed to expand globs: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("No transcripts found")
	}

	var source parser.MessageSource
	if cfg.Merge {
		sources := make([]parser.MessageSource, len(files))
		for i, file := range files {
			sources[i] = parser.NewFileSource([]string{file}, cfg.Resolver())
		}
		source = parser.NewMergedSource(sources...)
	} else {
		source = parser.NewFileSource(files, cfg.Resolver())
	}
	defer source.Close()

	messages, err := parser.Collect(context.Background(), source)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if f := cfg.CompiledFilter(); f != nil {
		if messages, err = f.Apply(messages); err != nil {
			t.Fatalf("Filter failed: %v", err)
		}
	}
	return messages, source.Stats()
}

func loadConfig(t *testing.T, path string) *config.Config {
	t.Helper()
	requireFile(t, path)
	cfg, err := config.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func familyReport(t *testing.T) *output.Report {
	t.Helper()
	cfg := loadConfig(t, filepath.Join("testdata", "configs", "family.yaml"))
	messages, stats := parseFiles(t, cfg)
	return output.NewReport(messages, stats, 0, output.Metadata{Sources: cfg.Transcripts})
}

// TestE2E_FamilyGroup runs the full pipeline over a month-first export with
// system notices, a multi-line message and non-ASCII authors.
func TestE2E_FamilyGroup(t *testing.T) {
	chdir(t)
	cfg := loadConfig(t, filepath.Join("testdata", "configs", "family.yaml"))

	messages, stats := parseFiles(t, cfg)

	if stats.Files != 1 || stats.Lines != 9 || stats.Entries != 8 || stats.Records != 8 || stats.Dropped != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if len(messages) != 8 {
		t.Fatalf("Expected 8 messages, got %d", len(messages))
	}

	tests := []struct {
		index  int
		date   string
		time   string
		author string
		text   string
	}{
		{0, "2021-03-06", "14:30", "", "Messages and calls are end-to-end encrypted. No one outside of this chat can read them."},
		{1, "2021-03-06", "14:31", "", `RK created group "Family"`},
		{2, "2021-03-06", "14:32", "RK", "Welcome everyone This group is for planning the reunion"},
		{4, "2021-03-07", "09:05", "José Álvarez", "Can we meet on the 20th?"},
		{6, "2021-03-15", "23:58", "Priya Sharma", "<Media omitted>"},
		{7, "2021-03-16", "00:01", "", "José Álvarez left"},
	}
	for _, tt := range tests {
		msg := messages[tt.index]
		if msg.Date() != tt.date || msg.TimeOfDay() != tt.time {
			t.Errorf("message %d: got %s %s, want %s %s", tt.index, msg.Date(), msg.TimeOfDay(), tt.date, tt.time)
		}
		if msg.Author != tt.author {
			t.Errorf("message %d: got author %q, want %q", tt.index, msg.Author, tt.author)
		}
		if msg.Text != tt.text {
			t.Errorf("message %d: got text %q, want %q", tt.index, msg.Text, tt.text)
		}
	}

	if messages[2].LineNum != 3 || messages[2].Source != familyTranscript {
		t.Errorf("Unexpected origin %s:%d", messages[2].Source, messages[2].LineNum)
	}
}

// TestE2E_FamilyGroup_TextOutput tests text output formatting.
func TestE2E_FamilyGroup_TextOutput(t *testing.T) {
	chdir(t)
	report := familyReport(t)

	var buf bytes.Buffer
	if err := output.NewTextFormatter(output.FormatOptions{}).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	out := buf.String()
	checks := []string{
		"DATE        TIME   AUTHOR",
		"2021-03-06  14:32  RK            Welcome everyone This group is for planning the reunion",
		"2021-03-07  09:05  José Álvarez  Can we meet on the 20th?",
		"Summary: 8 messages from 3 authors in 1 transcripts",
	}
	for _, check := range checks {
		if !strings.Contains(out, check) {
			t.Errorf("Output missing %q:\n%s", check, out)
		}
	}
}

// TestE2E_FamilyGroup_JSONOutput tests JSON output formatting.
func TestE2E_FamilyGroup_JSONOutput(t *testing.T) {
	chdir(t)
	report := familyReport(t)

	var buf bytes.Buffer
	if err := output.NewJSONFormatter(output.FormatOptions{}).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var parsed output.JSONReport
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}

	if parsed.Summary.Messages != 8 || parsed.Summary.Authors != 3 {
		t.Errorf("Unexpected summary: %+v", parsed.Summary)
	}
	if parsed.Messages[0].Author != nil {
		t.Errorf("System notice should have a null author, got %q", *parsed.Messages[0].Author)
	}
	if a := parsed.Messages[3].Author; a == nil || *a != "Priya Sharma" {
		t.Errorf("Unexpected author for message 3: %v", a)
	}
}

// TestE2E_FamilyGroup_CSVOutput tests CSV output formatting.
func TestE2E_FamilyGroup_CSVOutput(t *testing.T) {
	chdir(t)
	report := familyReport(t)

	var buf bytes.Buffer
	if err := output.NewCSVFormatter(output.FormatOptions{}).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV output: %v", err)
	}
	if len(rows) != 9 {
		t.Fatalf("Expected header and 8 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "Date,Time,Author,Message" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[2][2] != "" || rows[2][3] != `RK created group "Family"` {
		t.Errorf("Unexpected system row: %v", rows[2])
	}
}

// TestE2E_DayFirst_DefaultLayouts shows day-first dates are dropped, not
// misread, with the month-first defaults.
func TestE2E_DayFirst_DefaultLayouts(t *testing.T) {
	chdir(t)
	requireFile(t, travelTranscript)

	cfg := config.DefaultConfig()
	cfg.Transcripts = []string{travelTranscript}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	messages, stats := parseFiles(t, cfg)

	if len(messages) != 0 {
		t.Errorf("Expected no messages, got %d", len(messages))
	}
	if stats.Records != 3 || stats.Dropped != 3 {
		t.Errorf("Expected 3 dropped records, got %+v", stats)
	}
}

// TestE2E_DayFirst_Config tests a configured day-first layout and location.
func TestE2E_DayFirst_Config(t *testing.T) {
	chdir(t)
	cfg := loadConfig(t, filepath.Join("testdata", "configs", "travel.yaml"))

	messages, stats := parseFiles(t, cfg)

	if stats.Dropped != 0 || len(messages) != 3 {
		t.Fatalf("Expected 3 messages and no drops, got %d and %+v", len(messages), stats)
	}
	if messages[1].Text != "Same to you Flights are booked for the 28th" {
		t.Errorf("Unexpected joined text: %q", messages[1].Text)
	}
	if messages[2].Date() != "2021-12-26" || messages[2].TimeOfDay() != "22:00" {
		t.Errorf("Unexpected timestamp: %s", messages[2].Timestamp)
	}
	if name := messages[0].Timestamp.Location().String(); name != "Europe/Madrid" {
		t.Errorf("Expected Europe/Madrid, got %s", name)
	}
}

// TestE2E_Merge_TOML merges two exports chronologically from a TOML config.
func TestE2E_Merge_TOML(t *testing.T) {
	chdir(t)
	cfg := loadConfig(t, filepath.Join("testdata", "configs", "team.toml"))

	if !cfg.Merge || cfg.Filter != "!System" {
		t.Fatalf("TOML config not decoded: %+v", cfg)
	}

	messages, stats := parseFiles(t, cfg)

	if stats.Files != 2 {
		t.Errorf("Expected 2 transcripts, got %d", stats.Files)
	}
	want := []string{"standup in five", "joining late", "notes posted", "done"}
	if len(messages) != len(want) {
		t.Fatalf("Expected %d messages, got %d", len(want), len(messages))
	}
	for i, text := range want {
		if messages[i].Text != text {
			t.Errorf("message %d: got %q, want %q", i, messages[i].Text, text)
		}
	}
}

// TestE2E_Sequential keeps file order without merging.
func TestE2E_Sequential(t *testing.T) {
	chdir(t)

	out, code, err := runCLI(t, "parse", "-o", "csv", "testdata/transcripts/team_*.txt")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if code != 0 {
		t.Errorf("Expected exit 0, got %d", code)
	}

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV: %v", err)
	}
	var authors []string
	for _, row := range rows[1:] {
		authors = append(authors, row[2])
	}
	if strings.Join(authors, ",") != "Ana,Ana,Ben,Ben" {
		t.Errorf("Expected file order, got %v", authors)
	}
}

// TestE2E_Detect_MonthFirst tests layout detection on a month-first export.
func TestE2E_Detect_MonthFirst(t *testing.T) {
	chdir(t)
	requireFile(t, familyTranscript)

	result, err := detector.New().DetectFromFile(context.Background(), familyTranscript)
	if err != nil {
		t.Fatalf("Detection failed: %v", err)
	}

	if result.SampledLines != 9 || result.EntryLines != 8 || result.AuthoredLines != 5 {
		t.Errorf("Unexpected counts: sampled %d, entries %d, authored %d",
			result.SampledLines, result.EntryLines, result.AuthoredLines)
	}
	best := result.BestMatch()
	if best == nil || best.Format.Layout != "1/2/06" {
		t.Fatalf("Expected 1/2/06, got %+v", best)
	}
	if result.Ambiguous() {
		t.Errorf("Days above 12 should settle the ordering: %s", result.AmbiguityNote)
	}
}

// TestE2E_Detect_DayFirst tests layout detection on a day-first export.
func TestE2E_Detect_DayFirst(t *testing.T) {
	chdir(t)
	requireFile(t, travelTranscript)

	result, err := detector.New().DetectFromFile(context.Background(), travelTranscript)
	if err != nil {
		t.Fatalf("Detection failed: %v", err)
	}

	if layouts := result.Layouts(); len(layouts) != 1 || layouts[0] != "2/1/2006" {
		t.Errorf("Expected [2/1/2006], got %v", layouts)
	}
	if !result.BestMatch().Format.DayFirst {
		t.Error("Expected a day-first format")
	}
}

// TestE2E_Detect_WriteConfig tests that a generated config parses the
// transcript it was generated from.
func TestE2E_Detect_WriteConfig(t *testing.T) {
	chdir(t)
	configPath := filepath.Join(t.TempDir(), "chatlog.yaml")

	out, _, err := runCLI(t, "detect", "--write-config", configPath, travelTranscript)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(out, "Detected Layout: Day first, 4-digit year (2/1/2006)") {
		t.Errorf("Unexpected detect output:\n%s", out)
	}

	out, code, err := runCLI(t, "parse", "-q", "-c", configPath)
	if err != nil {
		t.Fatalf("parse with generated config failed: %v", err)
	}
	if code != 0 {
		t.Errorf("Expected exit 0, got %d", code)
	}
	if out != "chatlog: 1 transcripts, 3 messages, 2 authors, 0 dropped\n" {
		t.Errorf("Unexpected output: %q", out)
	}
}

// TestE2E_CLI_Parse_Strict tests the exit code when records are dropped.
func TestE2E_CLI_Parse_Strict(t *testing.T) {
	chdir(t)

	out, code, err := runCLI(t, "parse", "-q", "--strict", travelTranscript)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if code != 1 {
		t.Errorf("Expected exit 1 with dropped records, got %d", code)
	}
	if out != "chatlog: 1 transcripts, 0 messages, 0 authors, 3 dropped\n" {
		t.Errorf("Unexpected output: %q", out)
	}

	_, code, err = runCLI(t, "parse", "-q", "--strict", "--date-layout", "2/1/2006", travelTranscript)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if code != 0 {
		t.Errorf("Expected exit 0 once the layout fits, got %d", code)
	}
}

// TestE2E_CLI_Parse_Where tests filtering from the command line.
func TestE2E_CLI_Parse_Where(t *testing.T) {
	chdir(t)

	out, _, err := runCLI(t, "parse", "-o", "csv", "--where", `Author == "RK"`, familyTranscript)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	want := "Date,Time,Author,Message\n" +
		"2021-03-06,14:32,RK,Welcome everyone This group is for planning the reunion\n" +
		"2021-03-07,09:07,RK,Works for me\n"
	if out != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
}

// TestE2E_CLI_Classify tests the line-by-line classification listing.
func TestE2E_CLI_Classify(t *testing.T) {
	chdir(t)

	out, _, err := runCLI(t, "classify", familyTranscript)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if !strings.Contains(out, "9 lines: 8 entries (5 with author, 3 system), 1 continuations") {
		t.Errorf("Unexpected summary:\n%s", out)
	}
}

// TestE2E_CLI_Validate tests config validation.
func TestE2E_CLI_Validate(t *testing.T) {
	chdir(t)

	out, _, err := runCLI(t, "validate", filepath.Join("testdata", "configs", "travel.yaml"))
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	for _, check := range []string{"Configuration valid!", "2/1/2006", "Europe/Madrid", "Transcripts matched: 1"} {
		if !strings.Contains(out, check) {
			t.Errorf("Output missing %q:\n%s", check, out)
		}
	}

	if _, _, err := runCLI(t, "validate", filepath.Join("testdata", "configs", "invalid.yaml")); err == nil {
		t.Error("Expected invalid config to fail validation")
	}
}

// TestE2E_Diagnose_ValidConfigs tests diagnose on each shipped config.
func TestE2E_Diagnose_ValidConfigs(t *testing.T) {
	chdir(t)

	for _, name := range []string{"family.yaml", "travel.yaml", "team.toml"} {
		t.Run(name, func(t *testing.T) {
			out, _, err := runCLI(t, "diagnose", filepath.Join("testdata", "configs", name))
			if err != nil {
				t.Fatalf("diagnose failed: %v", err)
			}
			if !strings.Contains(out, "0 errors") {
				t.Errorf("Expected no errors:\n%s", out)
			}
		})
	}
}

// TestE2E_Diagnose_InvalidYAML tests diagnose on a config with a tab indent.
func TestE2E_Diagnose_InvalidYAML(t *testing.T) {
	chdir(t)

	out, _, err := runCLI(t, "diagnose", filepath.Join("testdata", "configs", "invalid.yaml"))
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	if !strings.Contains(out, "[FAIL] Config Syntax") || !strings.Contains(out, "use spaces, not tabs") {
		t.Errorf("Expected YAML syntax failure:\n%s", out)
	}
}

// TestE2E_Diagnose_NonexistentConfig tests diagnose on a missing config.
func TestE2E_Diagnose_NonexistentConfig(t *testing.T) {
	chdir(t)

	out, _, err := runCLI(t, "diagnose", filepath.Join("testdata", "configs", "missing.yaml"))
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	if !strings.Contains(out, "Config file not found") {
		t.Errorf("Expected not-found result:\n%s", out)
	}
}

// recorder captures webhook requests.
type recorder struct {
	mu       sync.Mutex
	calls    int
	auth     string
	payload  []byte
	response int
}

func (r *recorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.calls++
		r.auth = req.Header.Get("Authorization")
		r.payload = body
		status := r.response
		r.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func (r *recorder) snapshot() (int, string, []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.auth, r.payload
}

// TestE2E_Webhook_Send tests posting a parse report with a bearer token.
func TestE2E_Webhook_Send(t *testing.T) {
	chdir(t)
	rec := &recorder{}
	server := rec.server(t)

	resp := webhook.NewClient().Send(context.Background(), familyReport(t), webhook.SendOptions{
		URL:   server.URL,
		Token: "test-token-123",
	})
	if !resp.Success() {
		t.Fatalf("Webhook failed: %v", resp.Error)
	}

	_, auth, payload := rec.snapshot()
	if auth != "Bearer test-token-123" {
		t.Errorf("Expected Bearer token, got %s", auth)
	}

	var parsed output.JSONReport
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("Invalid JSON payload: %v", err)
	}
	if parsed.Summary.Messages != 8 || len(parsed.Messages) != 8 {
		t.Errorf("Unexpected payload summary: %+v", parsed.Summary)
	}
}

// TestE2E_Webhook_ServerError tests handling of webhook server errors.
func TestE2E_Webhook_ServerError(t *testing.T) {
	chdir(t)
	rec := &recorder{response: http.StatusInternalServerError}
	server := rec.server(t)

	resp := webhook.NewClient().Send(context.Background(), familyReport(t), webhook.SendOptions{URL: server.URL})

	if resp.Success() {
		t.Error("Expected webhook to fail with 500 error")
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", resp.StatusCode)
	}
}

// TestE2E_Webhook_CLI tests webhook via CLI flags.
func TestE2E_Webhook_CLI(t *testing.T) {
	chdir(t)
	rec := &recorder{}
	server := rec.server(t)

	_, code, err := runCLI(t, "parse", "-q", familyTranscript,
		"--webhook-url", server.URL,
		"--webhook-token", "secret-token")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if code != 0 {
		t.Errorf("Expected exit 0, got %d", code)
	}

	calls, auth, payload := rec.snapshot()
	if calls != 1 {
		t.Fatalf("Expected one webhook call, got %d", calls)
	}
	if auth != "Bearer secret-token" {
		t.Errorf("Expected Bearer token, got %q", auth)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("Invalid JSON payload: %v", err)
	}
	if _, ok := parsed["summary"]; !ok {
		t.Error("Payload missing summary field")
	}
}

// TestE2E_Webhook_OnRecordsNoMessages tests the default trigger stays quiet
// when the filter removes every message.
func TestE2E_Webhook_OnRecordsNoMessages(t *testing.T) {
	chdir(t)
	rec := &recorder{}
	server := rec.server(t)

	_, _, err := runCLI(t, "parse", "-q", familyTranscript,
		"--where", `Author == "nobody"`,
		"--webhook-url", server.URL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if calls, _, _ := rec.snapshot(); calls != 0 {
		t.Errorf("Expected no webhook call, got %d", calls)
	}

	_, _, err = runCLI(t, "parse", "-q", familyTranscript,
		"--where", `Author == "nobody"`,
		"--webhook-url", server.URL,
		"--webhook-trigger", "always")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if calls, _, _ := rec.snapshot(); calls != 1 {
		t.Errorf("Expected always trigger to fire once, got %d", calls)
	}
}

// TestE2E_Webhook_ConfigFile tests webhooks defined in a config file.
func TestE2E_Webhook_ConfigFile(t *testing.T) {
	chdir(t)
	archive := &recorder{}
	muted := &recorder{}
	archiveServer := archive.server(t)
	mutedServer := muted.server(t)

	abs, err := filepath.Abs(familyTranscript)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATLOG_TEST_TOKEN", "from-env")

	configPath := filepath.Join(t.TempDir(), "webhooks.yaml")
	content := "transcripts:\n  - " + abs + "\n" +
		"webhooks:\n" +
		"  - name: archive\n    url: " + archiveServer.URL + "\n    token: ${CHATLOG_TEST_TOKEN}\n    batch_size: 5\n" +
		"  - name: muted\n    url: " + mutedServer.URL + "\n    trigger: never\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, _, err := runCLI(t, "parse", "-q", "-c", configPath); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	// 8 messages in batches of 5
	calls, auth, _ := archive.snapshot()
	if calls != 2 {
		t.Errorf("Expected archive webhook to post 2 batches, got %d", calls)
	}
	if auth != "Bearer from-env" {
		t.Errorf("Expected token from environment, got %q", auth)
	}
	if calls, _, _ := muted.snapshot(); calls != 0 {
		t.Errorf("Expected muted webhook not to fire, got %d", calls)
	}
}
