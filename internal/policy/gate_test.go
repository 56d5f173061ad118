package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routermedic/routermedic/internal/config"
)

func TestGateDeniesInCheckAndReportModes(t *testing.T) {
	p := config.Default()

	for _, mode := range []config.Mode{config.ModeCheck, config.ModeReport} {
		g := NewGate(p, mode)
		for _, cat := range []Category{CategoryFilesystem, CategoryService, CategoryDatabase, CategoryMemory} {
			assert.False(t, g.MayFix(cat), "mode=%s cat=%s", mode, cat)
		}
	}
}

func TestGateAllowsInAutoMode(t *testing.T) {
	g := NewGate(config.Default(), config.ModeAuto)

	assert.True(t, g.MayFix(CategoryFilesystem))
	assert.True(t, g.MayFix(CategoryService))
	assert.True(t, g.MayFix(CategoryDatabase))
	assert.True(t, g.MayFix(CategoryMemory))
}

func TestGateMasterToggle(t *testing.T) {
	p := config.Default()
	p.AutoFix = false

	g := NewGate(p, config.ModeAuto)
	assert.False(t, g.MayFix(CategoryFilesystem))

	// fix mode forces the master toggle on
	g = NewGate(p, config.ModeFix)
	assert.True(t, g.MayFix(CategoryFilesystem))
}

func TestGateCategoryToggles(t *testing.T) {
	p := config.Default()
	p.ServiceRestart = false
	p.DatabaseFix = false

	g := NewGate(p, config.ModeAuto)
	assert.False(t, g.MayFix(CategoryService))
	assert.False(t, g.MayFix(CategoryDatabase))
	assert.True(t, g.MayFix(CategoryFilesystem))
}

func TestGateBudgetExhaustion(t *testing.T) {
	p := config.Default()
	p.MaxFixesPerRun = 2

	g := NewGate(p, config.ModeAuto)

	assert.True(t, g.MayFix(CategoryFilesystem))
	g.RecordFixAttempt()
	assert.True(t, g.MayFix(CategoryFilesystem))
	g.RecordFixAttempt()

	// Budget spent; every category is denied, success or not.
	assert.False(t, g.MayFix(CategoryFilesystem))
	assert.False(t, g.MayFix(CategoryService))
	assert.Equal(t, 2, g.Attempts())
}

func TestGateAttemptsNeverExceedBudgetWhenCallersBehave(t *testing.T) {
	p := config.Default()
	p.MaxFixesPerRun = 3

	g := NewGate(p, config.ModeAuto)

	attempted := 0
	for i := 0; i < 10; i++ {
		if g.MayFix(CategoryFilesystem) {
			g.RecordFixAttempt()
			attempted++
		}
	}
	assert.Equal(t, 3, attempted)
}
