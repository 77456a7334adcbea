package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerdesk/authcore/condition"
	"github.com/brokerdesk/authcore/permission"
	"github.com/brokerdesk/authcore/session"
)

func TestLoadAndCompile(t *testing.T) {
	f, err := Load("testdata/brokerage.yaml")
	require.NoError(t, err)

	c, err := f.Compile(permission.Canonical())
	require.NoError(t, err)

	assert.Equal(t, "brokerdesk", c.Issuer)
	assert.Equal(t, permission.DefaultOrder, c.Hierarchy.Roles())
	assert.True(t, c.Roles.Frozen())
	assert.True(t, c.Privileges.Frozen())

	m, ok := c.Roles.Lookup("AGENT", "document")
	require.True(t, ok)
	assert.Equal(t, permission.Mask(0x0007), m)

	m, _ = c.Roles.Lookup("AGENT", "deal")
	assert.Equal(t, permission.Mask(0x0007), m)

	m, _ = c.Privileges.Lookup("document_executor", "document")
	assert.Equal(t, permission.Mask(0x0040), m)

	assert.Equal(t, 55, c.RiskCeilings[session.SensitivityHigh])
	assert.Equal(t, 40, c.RiskCeilings[session.SensitivityCritical])
	assert.True(t, c.Vocabulary.Recognizes(condition.MaxTransactionValue))

	require.Len(t, c.Operations, 4)
	approve := c.Operations[1]
	assert.Equal(t, "deal.approve", approve.Name)
	assert.True(t, approve.RequireAll)
	assert.Equal(t, session.SensitivityHigh, approve.Requirement.Sensitivity)
	assert.True(t, approve.Requirement.GeoRestricted)
	assert.Equal(t, []string{"US", "CA"}, approve.Requirement.AllowedRegions)
	assert.Equal(t, 3, approve.Requirement.MinDataProtectionLevel)
	assert.Equal(t, []permission.Action{permission.ActionView, permission.ActionApprove}, approve.Required[0].Actions)

	pay := c.Operations[2]
	assert.Equal(t, "deal.pay", pay.Name)
	assert.Equal(t, []string{"transaction_value"}, pay.Parameters)
	assert.Empty(t, approve.Parameters)

	open := c.Operations[3]
	assert.False(t, open.RequireAll)
	assert.Len(t, open.Required, 2)
	assert.Equal(t, session.SensitivityStandard, open.Requirement.Sensitivity)
}

func TestCompiledTablesDriveEvaluator(t *testing.T) {
	f, err := Load("testdata/brokerage.yaml")
	require.NoError(t, err)
	c, err := f.Compile(nil)
	require.NoError(t, err)

	e, err := permission.NewEvaluator(permission.Canonical(), c.Hierarchy, c.Roles, c.Privileges)
	require.NoError(t, err)

	approve := c.Operations[1]
	d, err := e.Evaluate(permission.Subject{Roles: []permission.Role{permission.RoleCompanyAdmin}}, approve.Required, approve.RequireAll)
	require.NoError(t, err)
	assert.True(t, d.Granted)

	d, err = e.Evaluate(permission.Subject{Roles: []permission.Role{permission.RoleAgent}}, approve.Required, approve.RequireAll)
	require.NoError(t, err)
	assert.False(t, d.Granted)
	assert.Equal(t, []permission.Action{permission.ActionApprove}, d.Missing)
}

func TestCompileRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed hex", doc: "roles:\n  AGENT:\n    deal: \"0x07\"\n"},
		{name: "unknown action", doc: "roles:\n  AGENT:\n    deal: [VIEW, PUBLISH]\n"},
		{name: "unknown role", doc: "roles:\n  OWNER:\n    deal: [VIEW]\n"},
		{name: "duplicate hierarchy role", doc: "hierarchy: [ADMIN, USER, ADMIN]\n"},
		{name: "bad ceiling tier", doc: "risk_ceilings:\n  extreme: 10\n"},
		{name: "ceiling out of range", doc: "risk_ceilings:\n  high: 150\n"},
		{name: "bad comparator", doc: "conditions:\n  - key: X\n    parameter: x\n    comparator: approx\n"},
		{name: "operation without name", doc: "operations:\n  - requires: []\n"},
		{name: "duplicate operation", doc: "operations:\n  - name: a\n  - name: a\n"},
		{name: "operation unknown action", doc: "operations:\n  - name: a\n    requires:\n      - resource: deal\n        actions: [FLY]\n"},
		{name: "geo without regions", doc: "operations:\n  - name: a\n    geo_restricted: true\n"},
		{name: "bad protection level", doc: "operations:\n  - name: a\n    min_data_protection_level: 7\n"},
		{name: "empty parameter", doc: "operations:\n  - name: a\n    parameters: [\"\"]\n"},
		{name: "duplicate parameter", doc: "operations:\n  - name: a\n    parameters: [amount, amount]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			_, err = f.Compile(permission.Canonical())
			assert.Error(t, err)
		})
	}
}

func TestParseRejectsUnknownFieldsAndShapes(t *testing.T) {
	_, err := Parse([]byte("issuer: x\nrole_grants: {}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("roles:\n  AGENT:\n    deal: {view: true}\n"))
	assert.Error(t, err)
}

func TestEmptyDocumentUsesDefaults(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	c, err := f.Compile(nil)
	require.NoError(t, err)
	assert.Equal(t, permission.DefaultOrder, c.Hierarchy.Roles())
	assert.Equal(t, 0, c.Roles.Count())
	assert.Equal(t, []string{condition.MaxTransactionValue}, c.Vocabulary.Keys())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
