package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RetireRisk/internal/model"
	"RetireRisk/internal/recorder"
	"RetireRisk/internal/sensitivity"
	"RetireRisk/internal/solver"
)

func testNotifier(t *testing.T, h http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.APIBase = srv.URL
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSend_LongMessageIsSplit(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		mu.Lock()
		texts = append(texts, got["text"])
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	})

	line := strings.Repeat("x", 99) + "\n"
	text := strings.Repeat(line, 50) // 5000 bytes
	require.NoError(t, n.Send(context.Background(), text))

	require.Len(t, texts, 2)
	assert.Equal(t, text, texts[0]+texts[1])
	assert.Len(t, texts[0], 4000)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))
	assert.Equal(t, []string{"aaaa\n", "bbbb\n", "cc"}, SplitMessage("aaaa\nbbbb\ncc", 6))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, SplitMessage("abcdefghij", 4))

	// "±" is two bytes and would straddle byte 4.
	parts := SplitMessage("abc±def±", 4)
	assert.Equal(t, []string{"abc", "±de", "f±"}, parts)
	for _, part := range parts {
		assert.True(t, utf8.ValidString(part), part)
	}
}

func TestSend_APIError(t *testing.T) {
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad chat", http.StatusBadRequest)
	})
	err := n.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")

	err = n.SendWithRetry(context.Background(), "hello", 0)
	assert.ErrorContains(t, err, "retries exhausted")
}

func TestSend_Disabled(t *testing.T) {
	n := NewTelegramNotifier("", "", "", nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Send(context.Background(), "dropped"))

	done := make(chan struct{})
	go func() {
		n.StartPolling(context.Background(), func(context.Context, string) string { return "" })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("polling should return at once when disabled")
	}
}

func TestStartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		served  bool
		replies []string
	)
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served {
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			served = true
			w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"chat":{"id":42},"text":" /plan "}}]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
			w.Write([]byte(`{"ok":true}`))
			cancel()
		}
	})

	var commands []string
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			commands = append(commands, cmd)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/plan"}, commands)
	assert.Equal(t, []string{"reply to /plan"}, replies)
}

func TestStartPolling_IgnoresForeignChat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		served  bool
		replies []string
	)
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served {
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			served = true
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":8,"message":{"chat":{"id":999},"text":"/set stock_fraction 0"}},
				{"update_id":9,"message":{"text":"/table NY male"}},
				{"update_id":10,"message":{"chat":{"id":42},"text":"/plan"}}]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
			w.Write([]byte(`{"ok":true}`))
			cancel()
		}
	})

	var commands []string
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			commands = append(commands, cmd)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/plan"}, commands)
	assert.Equal(t, []string{"reply to /plan"}, replies)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$1,234,568", Money(1234567.8))
	assert.Equal(t, "-$40,000", Money(-40000))
	assert.Equal(t, "$1.25 million", Millions(1.25e6))
}

func testParams() model.SimulationParameters {
	return model.SimulationParameters{
		StartingAssets: 1e6,
		YearlyExpense:  40e3,
		StockFraction:  0.5,
		StartingAge:    65,
		Mortality:      model.MortalityKey{Region: "CA", Group: "total"},
		SampleCount:    500,
	}
}

func TestFormatRiskReport(t *testing.T) {
	res := &model.SimulationResult{DepletionProbability: 0.125, StandardError: 0.0148, SampleCount: 500, Depleted: 62}
	msg := FormatRiskReport(testParams(), res, 0.02)
	assert.Contains(t, msg, "Chance of running out of money is 12.50%")
	assert.Contains(t, msg, "62 of 500")
	assert.Contains(t, msg, "Above your acceptable risk")

	msg = FormatRiskReport(testParams(), res, 0.5)
	assert.NotContains(t, msg, "Above your acceptable risk")
}

func TestFormatGoalReport(t *testing.T) {
	sol := &solver.Solution{RequiredSavings: 1.5e6, Attempts: 1, SampleCount: 500, Iterations: 8, Risk: 0.02}
	msg := FormatGoalReport(testParams(), 0.02, sol)
	assert.Contains(t, msg, "You should save $1.50 million")
	assert.Contains(t, msg, "Shortfall against current assets: $500,000")
}

func TestFormatSweepAndCascade(t *testing.T) {
	report := &sensitivity.Report{
		Base: &solver.Solution{RequiredSavings: 1e6},
		Sweeps: []sensitivity.FactorSweep{{
			Factor:    "stock_fraction",
			BaseValue: 0.5,
			Points:    []model.SweepPoint{{Value: 0, RequiredSavings: 2e6}, {Value: 1, RequiredSavings: 1.5e6}},
		}},
	}
	msg := FormatSweepReport(report)
	assert.Contains(t, msg, "Base plan: save $1.00 million")
	assert.Contains(t, msg, "stock_fraction (base 0.5)")
	assert.Contains(t, msg, "$2.00 million")

	msg = FormatCascade([]sensitivity.CascadeCurve{{StockFraction: 0.25, Points: []model.RiskPoint{{StartingAssets: 1e5, DepletionProbability: 0.9}}}})
	assert.Contains(t, msg, "25% stocks")
	assert.Contains(t, msg, "90.00%")
}

func TestFormatPlanAndHistory(t *testing.T) {
	st := &model.PlanState{StartingAssets: 1e6, YearlyExpense: 40e3, StockFraction: 0.6, StartingAge: 65,
		Region: "IA", Group: "white-female", SampleCount: 500, AcceptableRisk: 0.02, Revision: "abc"}
	msg := FormatPlan(st)
	assert.Contains(t, msg, "Yearly expense: $40,000")
	assert.Contains(t, msg, "IA/white-female")
	assert.NotContains(t, msg, "Last risk")

	assert.Equal(t, "No savings goals recorded yet.", FormatRecentSolves(nil))
	msg = FormatRecentSolves([]recorder.SolverRun{
		{Timestamp: time.Now(), RequiredSavings: 2e6, TargetRisk: 0.01},
		{Timestamp: time.Now(), Error: "solver did not converge"},
	})
	assert.Contains(t, msg, "$2.00 million at 1.00% risk")
	assert.Contains(t, msg, "failed")

	assert.Contains(t, FormatError("goal", errors.New("a < b")), "a &lt; b")
}
