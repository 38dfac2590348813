package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRegistersExpectedSubcommandsAndFlags(t *testing.T) {
	root := newRootCmd()

	wantCommands := []string{"register", "add", "update", "rm", "mv", "download", "recover", "share"}
	var got []string
	for _, c := range root.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range wantCommands {
		assert.Contains(t, got, name)
	}

	for _, flag := range []string{"root", "user", "password", "pin"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing persistent flag %q", flag)
	}
}
