package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	failOn   string

	calls []string
}

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	return f.record("register")
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) WhoAmI(ctx context.Context) error  { return f.record("whoami") }
func (f *fakeExec) Refresh(ctx context.Context) error { return f.record("refresh") }
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}

func TestRunREPL_Dispatch(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"register",
		"login",
		"",
		"help",
		"whoami",
		"refresh",
		"foobar",
		"logout",
		"exit",
		"login",
	}, "\n")

	exec := &fakeExec{failOn: "refresh"}
	var out bytes.Buffer

	runREPL(context.Background(), exec, func() string { return "status" },
		bufio.NewReader(strings.NewReader(input)), &out)

	assert.Equal(t, []string{"register", "login", "whoami", "refresh", "logout"}, exec.calls)

	s := out.String()
	assert.Contains(t, s, "Available commands: register, login, exit")
	assert.Contains(t, s, "Available commands: whoami, refresh, logout, exit")
	assert.Contains(t, s, "Unknown command: foobar")
	assert.Contains(t, s, "Error: refresh failed")
	assert.Contains(t, s, "rback status> ")
	assert.Contains(t, s, "Bye!")
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	exec := &fakeExec{}
	var out bytes.Buffer

	runREPL(context.Background(), exec, func() string { return "" },
		bufio.NewReader(strings.NewReader("register")), &out)

	assert.Equal(t, []string{"register"}, exec.calls)
}
