package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var reviewed = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fixture holds the ids seeded by seedFixture.
type fixture struct {
	rbac      int64
	lifecycle int64
	devices   int64

	globalAdmin int64
	offboard    int64
	onboard     int64
	inventory   int64
}

// seedFixture writes three categories and four scripts.
func seedFixture(t *testing.T, s *SQLiteStorage) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture

	err := s.InTransaction(ctx, func(w Writer) error {
		var err error
		if f.lifecycle, err = w.CreateCategory(ctx, Category{Slug: "user-lifecycle", Name: "User Lifecycle", Description: "Onboarding and offboarding", SortOrder: 1}); err != nil {
			return err
		}
		if f.rbac, err = w.CreateCategory(ctx, Category{Slug: "rbac", Name: "RBAC", Description: "Role assignments", SortOrder: 2}); err != nil {
			return err
		}
		if f.devices, err = w.CreateCategory(ctx, Category{Slug: "devices", Name: "Devices", Description: "Device inventory", SortOrder: 3}); err != nil {
			return err
		}

		f.globalAdmin, err = w.CreateScript(ctx, ScriptInput{
			CategoryID:   f.rbac,
			Name:         "Set-GlobalAdmin",
			FilePath:     "RBAC/Set-GlobalAdmin.ps1",
			Synopsis:     "Assigns the Global Administrator role to a user",
			Description:  "Adds a user to the Global Administrator directory role after confirming the account exists",
			KCSState:     KCSStateDraft,
			Environment:  "Entra ID tenant with Privileged Role Administrator rights",
			Resolution:   "Run with the target UPN",
			Cause:        "Emergency elevation requests",
			Confidence:   75,
			Author:       "J. Rivera",
			LastReviewed: &reviewed,
			Parameters: []Parameter{
				{Name: "UserPrincipalName", Description: "UPN of the user to elevate", IsRequired: true},
			},
			Tags: []string{"rbac", "entra-id"},
		})
		if err != nil {
			return err
		}

		f.offboard, err = w.CreateScript(ctx, ScriptInput{
			CategoryID:     f.lifecycle,
			Name:           "Remove-DepartedUser",
			FilePath:       "Lifecycle/Remove-DepartedUser.ps1",
			Subcategory:    "Offboarding",
			Synopsis:       "Disables a departed user and revokes active sessions",
			Description:    "Blocks sign-in, revokes refresh tokens, removes licenses and converts the mailbox to shared",
			SupportsWhatIf: true,
			SupportsExport: true,
			KCSState:       KCSStatePublished,
			Confidence:     90,
			Author:         "M. Okafor",
			LastReviewed:   &reviewed,
			Parameters: []Parameter{
				{Name: "ForwardTo", Description: "Mailbox that receives forwarded mail"},
				{Name: "UserPrincipalName", Description: "UPN of the departing user", IsRequired: true},
				{Name: "LogPath", Description: "CSV log location", DefaultValue: strPtr(`.\logs`)},
			},
			Tags: []string{"offboarding", "exchange", "licensing"},
		})
		if err != nil {
			return err
		}

		f.onboard, err = w.CreateScript(ctx, ScriptInput{
			CategoryID:   f.lifecycle,
			Name:         "New-StarterAccount",
			FilePath:     "Lifecycle/New-StarterAccount.ps1",
			Subcategory:  "Onboarding",
			Synopsis:     "Creates a cloud account for a new starter",
			Description:  "Creates the user, assigns the default license and adds baseline groups",
			KCSState:     KCSStateApproved,
			Confidence:   80,
			Author:       "M. Okafor",
			LastReviewed: &reviewed,
			Tags:         []string{"onboarding", "licensing"},
		})
		if err != nil {
			return err
		}

		f.inventory, err = w.CreateScript(ctx, ScriptInput{
			CategoryID:     f.devices,
			Name:           "Get-DeviceInventory",
			FilePath:       "Devices/Get-DeviceInventory.ps1",
			Synopsis:       "Exports managed device inventory to CSV",
			Description:    "Lists Intune managed devices with compliance state and last check-in",
			SupportsExport: true,
			KCSState:       KCSStateRetired,
			Confidence:     55,
			LastReviewed:   &reviewed,
		})
		return err
	})
	require.NoError(t, err)

	return f
}
