package target

import (
	"testing"
	"time"
)

func TestSignalsDoNotReplay(t *testing.T) {
	link := New()

	link.SetAuthFailure(AuthFailure{Target: "early", Scheme: "Basic"})

	sub := link.AuthFailure()
	defer sub.Close()

	link.SetAuthFailure(AuthFailure{Target: "service:jmx:rmi:///jndi/rmi://app:9091/jmxrmi", Scheme: "Basic"})

	select {
	case f := <-sub.C():
		if f.Target == "early" {
			t.Fatal("late subscriber saw a past failure")
		}
		if f.Scheme != "Basic" {
			t.Errorf("Scheme = %q, want Basic", f.Scheme)
		}
	case <-time.After(time.Second):
		t.Fatal("no failure delivered")
	}
}

func TestSSLFailureAndRetry(t *testing.T) {
	link := New()
	ssl := link.SSLFailure()
	defer ssl.Close()
	retry := link.AuthRetry()
	defer retry.Close()

	link.SetSSLFailure(SSLFailure{Target: "jvm"})
	link.SetAuthRetry()

	select {
	case f := <-ssl.C():
		if f.Target != "jvm" {
			t.Errorf("Target = %q, want jvm", f.Target)
		}
	case <-time.After(time.Second):
		t.Fatal("no SSL failure delivered")
	}
	select {
	case <-retry.C():
	case <-time.After(time.Second):
		t.Fatal("no retry delivered")
	}
}

func TestSelected(t *testing.T) {
	link := New()
	if !link.Selected().IsZero() {
		t.Fatal("expected no selection initially")
	}

	sub := link.SubscribeSelected()
	defer sub.Close()
	<-sub.C()

	tgt := Target{ConnectURL: "service:jmx:rmi:///jndi/rmi://app:9091/jmxrmi", Alias: "app"}
	link.Select(tgt)

	select {
	case got := <-sub.C():
		if got.Alias != "app" {
			t.Errorf("Alias = %q, want app", got.Alias)
		}
	case <-time.After(time.Second):
		t.Fatal("selection not delivered")
	}
	if link.Selected().ConnectURL != tgt.ConnectURL {
		t.Errorf("Selected() = %+v", link.Selected())
	}
}

func TestCredentials(t *testing.T) {
	link := New()
	url := "service:jmx:rmi:///jndi/rmi://app:9091/jmxrmi"

	if _, ok := link.Credential(url); ok {
		t.Fatal("unexpected credential")
	}

	link.StoreCredential(url, "admin", "secret")
	c, ok := link.Credential(" " + url + " ")
	if !ok {
		t.Fatal("credential not found")
	}
	if c.Username != "admin" || c.Password != "secret" {
		t.Errorf("Credential = %+v", c)
	}

	link.DeleteCredential(url)
	if _, ok := link.Credential(url); ok {
		t.Error("credential still present after delete")
	}
}
