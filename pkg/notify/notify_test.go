package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	consoleerrors "github.com/cryostatio/cryostat-sub001/internal/errors"
)

func newTestStore() *Store {
	var n int
	var mu sync.Mutex
	return New(
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
		WithKeyFunc(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return "k" + strconv.Itoa(n)
		}),
	)
}

func keys(ns []Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Key
	}
	return out
}

func TestNotifyDefaults(t *testing.T) {
	s := New()
	n := s.Notify(Notification{Title: "t", Variant: VariantInfo, Read: true})

	if n.Key == "" {
		t.Error("Key not generated")
	}
	if n.Timestamp == 0 {
		t.Error("Timestamp not set")
	}
	if n.Read {
		t.Error("Read should default to false")
	}
	if n.Hidden {
		t.Error("Hidden should default to false with the drawer closed")
	}

	kept := s.Notify(Notification{Key: "mine", Timestamp: 42})
	if kept.Key != "mine" || kept.Timestamp != 42 {
		t.Errorf("explicit key/timestamp overwritten: %+v", kept)
	}
}

func TestNewestFirst(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 5; i++ {
		s.Info(fmt.Sprintf("n%d", i), nil, "", false)
	}

	got := keys(s.Notifications())
	want := []string{"k5", "k4", "k3", "k2", "k1"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	s.SetRead("k3", true)
	s.SetHidden("k1", true)
	if got := keys(s.Notifications()); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order after mutation = %v, want %v", got, want)
	}
}

func TestMarkAllRead(t *testing.T) {
	s := newTestStore()
	s.Success("a", nil, "", false)
	s.Danger("b", nil, "", false)
	s.SetRead("k1", true)

	if got := len(s.Unread()); got != 1 {
		t.Fatalf("Unread() = %d, want 1", got)
	}
	s.MarkAllRead()
	if got := len(s.Unread()); got != 0 {
		t.Errorf("Unread() after MarkAllRead = %d, want 0", got)
	}
}

func TestClearAll(t *testing.T) {
	s := newTestStore()
	s.Success("a", nil, "", false)
	s.Warning("b", nil, "", false)
	s.Info("c", nil, CategoryTargetDiscovery, true)

	s.ClearAll()

	views := map[string][]Notification{
		"Notifications": s.Notifications(),
		"Unread":        s.Unread(),
		"Actions":       s.Actions(),
		"Status":        s.Status(),
		"Problems":      s.Problems(),
	}
	for name, v := range views {
		if len(v) != 0 {
			t.Errorf("%s() = %d entries after ClearAll", name, len(v))
		}
	}
}

func TestPartition(t *testing.T) {
	variants := []Variant{VariantSuccess, VariantInfo, VariantWarning, VariantDanger}
	categories := []string{"", CategoryConnectionActivity, CategoryTargetDiscovery, "ActiveRecordingCreated", "Foo"}

	for _, v := range variants {
		for _, c := range categories {
			n := Notification{Variant: v, Category: c}
			count := 0
			for _, in := range []bool{IsAction(n), IsStatus(n), IsProblem(n)} {
				if in {
					count++
				}
			}
			if count != 1 {
				t.Errorf("variant=%s category=%q is in %d partitions", v, c, count)
			}
		}
	}
}

func TestViews(t *testing.T) {
	s := newTestStore()
	s.Success("action", nil, "ActiveRecordingCreated", false)
	s.Info("status", nil, CategoryConnectionActivity, true)
	s.Danger("problem", nil, CategoryTargetDiscovery, false)

	tests := []struct {
		name string
		got  []Notification
		want []string
	}{
		{"Actions", s.Actions(), []string{"k1"}},
		{"Status", s.Status(), []string{"k2"}},
		{"Problems", s.Problems(), []string{"k3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if fmt.Sprint(keys(tt.got)) != fmt.Sprint(tt.want) {
				t.Errorf("%s = %v, want %v", tt.name, keys(tt.got), tt.want)
			}
		})
	}
}

func TestDrawerHidesAll(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 3; i++ {
		s.Info("n", nil, "", false)
	}

	sub := s.Subscribe()
	defer sub.Close()
	<-sub.C()

	s.SetDrawerState(true)

	select {
	case log := <-sub.C():
		if len(log) != 3 {
			t.Fatalf("published %d entries, want 3", len(log))
		}
		for _, n := range log {
			if !n.Hidden {
				t.Errorf("%s not hidden after drawer open", n.Key)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("no publish on drawer open")
	}

	select {
	case log := <-sub.C():
		t.Fatalf("drawer open published more than once: %v", keys(log))
	case <-time.After(20 * time.Millisecond):
	}

	n := s.Info("late", nil, "", false)
	if !n.Hidden {
		t.Error("notification added with drawer open should be hidden")
	}

	s.SetDrawerState(false)
	n = s.Info("closed", nil, "", false)
	if n.Hidden {
		t.Error("notification added with drawer closed should not be hidden")
	}
	if !s.Notifications()[1].Hidden {
		t.Error("closing the drawer should not unhide existing notifications")
	}
}

func TestDrawerConcurrentNotify(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Info("n", nil, "", false)
		}()
		if i == 50 {
			s.SetDrawerState(true)
		}
	}
	wg.Wait()

	log := s.Notifications()
	if len(log) != 100 {
		t.Fatalf("len = %d, want 100", len(log))
	}
	for _, n := range log {
		if !n.Hidden {
			t.Errorf("%s visible although the drawer is open", n.Key)
		}
	}
}

func TestSubscribeReplaysAndOrders(t *testing.T) {
	s := newTestStore()
	s.Info("first", nil, "", false)

	sub := s.Subscribe()
	defer sub.Close()

	if log := <-sub.C(); len(log) != 1 {
		t.Fatalf("replayed %d entries, want 1", len(log))
	}

	s.Info("second", nil, "", false)
	s.Info("third", nil, "", false)

	for _, want := range []int{2, 3} {
		select {
		case log := <-sub.C():
			if len(log) != want {
				t.Errorf("publish had %d entries, want %d", len(log), want)
			}
		case <-time.After(time.Second):
			t.Fatal("publish not delivered")
		}
	}
}

func TestSetReadUnknownKey(t *testing.T) {
	s := newTestStore()
	s.Info("a", nil, "", false)
	s.SetRead("missing", true)
	if s.Notifications()[0].Read {
		t.Error("SetRead with unknown key changed an entry")
	}
}

func TestObserver(t *testing.T) {
	var seen []Variant
	s := New(WithObserver(func(n Notification) { seen = append(seen, n.Variant) }))
	s.Success("a", nil, "", false)
	s.Danger("b", nil, "", false)
	if fmt.Sprint(seen) != "[success danger]" {
		t.Errorf("observer saw %v", seen)
	}
}

type payload struct {
	Bar int `json:"bar"`
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "plain", "plain"},
		{"raw", json.RawMessage(`{"bar":1}`), `{"bar":1}`},
		{"struct", payload{Bar: 1}, `{"bar":1}`},
		{"map", map[string]int{"bar": 1}, `{"bar":1}`},
		{"plain error", fmt.Errorf("boom"), `{"message":"boom"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stringify(tt.in); got != tt.want {
				t.Errorf("Stringify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStringifyStructuredError(t *testing.T) {
	err := consoleerrors.New("E400").
		WithDetail("target unreachable").
		WithStatus(500).
		Wrap(fmt.Errorf("connection refused"))

	var got map[string]any
	if e := json.Unmarshal([]byte(Stringify(err)), &got); e != nil {
		t.Fatalf("Stringify did not produce JSON: %v", e)
	}
	if got["code"] != "E400" {
		t.Errorf("code = %v", got["code"])
	}
	if got["detail"] != "target unreachable" {
		t.Errorf("detail = %v", got["detail"])
	}
	if got["message"] != err.Error() {
		t.Errorf("message = %v, want %q", got["message"], err.Error())
	}
	cause, ok := got["cause"].(map[string]any)
	if !ok || cause["message"] != "connection refused" {
		t.Errorf("cause = %v", got["cause"])
	}
}
