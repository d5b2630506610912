package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PPA-BE/Orders-At-Peak/internal/app"
	_ "github.com/PPA-BE/Orders-At-Peak/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}
