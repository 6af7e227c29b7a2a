package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/models"
)

func clinicPayload(name, location string) dto.ClinicCreateRequest {
	return dto.ClinicCreateRequest{
		Name:     name,
		Location: location,
		Address:  "Hauptstrasse 12",
		WorkHours: map[string]dto.DayHoursPayload{
			"Monday": {Open: "08:00", Close: "17:00", BreakStart: strPtr("12:00"), BreakEnd: strPtr("13:00")},
		},
	}
}

func TestClinicCreateOwnership(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	org := m.register(t, models.RoleOrganization, "org_clinic")
	patient := m.register(t, models.RolePatient, "pat_clinic")
	admin := m.seedAdmin(t, "admin_clinic", models.AdminRoleHelper)

	clinic, err := m.clinics.Create(ctx, org, clinicPayload("North Clinic", "Berlin Mitte"))
	require.NoError(t, err)
	require.Equal(t, org.ID, clinic.OrganizationID)
	require.True(t, clinic.IsActive)
	require.Contains(t, clinic.WorkHours, "monday")
	require.Equal(t, "12:00", *clinic.WorkHours["monday"].BreakStart)

	_, err = m.clinics.Create(ctx, patient, clinicPayload("Patient Clinic", "Berlin"))
	require.ErrorIs(t, err, ErrClinicForbidden)

	_, err = m.clinics.Create(ctx, admin, clinicPayload("Admin Clinic", "Berlin"))
	require.ErrorIs(t, err, ErrValidation)

	onBehalf := clinicPayload("Admin Clinic", "Hamburg")
	onBehalf.OrganizationID = &patient.ID
	_, err = m.clinics.Create(ctx, admin, onBehalf)
	require.ErrorIs(t, err, ErrValidation)

	onBehalf.OrganizationID = &org.ID
	created, err := m.clinics.Create(ctx, admin, onBehalf)
	require.NoError(t, err)
	require.Equal(t, org.ID, created.OrganizationID)

	profile, err := m.profiles.ByRole(ctx, org.ID, models.RoleOrganization)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{clinic.ID, created.ID}, profile.Organization.ClinicIDs)

	owned, err := m.clinics.ListByOrganization(ctx, org.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, owned.Items, 2)
}

func TestClinicUpdateAndDeletePermissions(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	owner := m.register(t, models.RoleOrganization, "org_owner")
	rival := m.register(t, models.RoleOrganization, "org_rival")
	admin := m.seedAdmin(t, "admin_upd", models.AdminRoleHelper)

	clinic, err := m.clinics.Create(ctx, owner, clinicPayload("Owner Clinic", "Leipzig"))
	require.NoError(t, err)

	_, err = m.clinics.Update(ctx, rival, clinic.ID, dto.ClinicUpdateRequest{Name: strPtr("Stolen Clinic")})
	require.ErrorIs(t, err, ErrClinicForbidden)

	updated, err := m.clinics.Update(ctx, owner, clinic.ID, dto.ClinicUpdateRequest{Is24x7: boolPtr(true)})
	require.NoError(t, err)
	require.True(t, updated.Is24x7)
	require.Empty(t, updated.WorkHours)

	updated, err = m.clinics.Update(ctx, admin, clinic.ID, dto.ClinicUpdateRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	require.ErrorIs(t, m.clinics.Delete(ctx, rival, clinic.ID), ErrClinicForbidden)
	require.NoError(t, m.clinics.Delete(ctx, owner, clinic.ID))

	_, err = m.clinics.Get(ctx, clinic.ID)
	require.ErrorIs(t, err, ErrClinicNotFound)
}

func TestClinicSearchIsCaseInsensitive(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	org := m.register(t, models.RoleOrganization, "org_search")
	for _, location := range []string{"Berlin Mitte", "berlin Kreuzberg", "Hamburg"} {
		_, err := m.clinics.Create(ctx, org, clinicPayload("Clinic "+location, location))
		require.NoError(t, err)
	}

	result, err := m.clinics.Search(ctx, dto.ClinicSearchRequest{Location: "BERLIN"})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.Equal(t, int64(2), result.Pagination.TotalItems)

	_, err = m.clinics.Search(ctx, dto.ClinicSearchRequest{Location: "   "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestNormalizeWorkHours(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]dto.DayHoursPayload
		is24x7  bool
		wantErr bool
	}{
		{name: "empty schedule", payload: nil},
		{name: "valid day", payload: map[string]dto.DayHoursPayload{"friday": {Open: "09:00", Close: "18:00"}}},
		{name: "unknown day", payload: map[string]dto.DayHoursPayload{"funday": {Open: "09:00", Close: "18:00"}}, wantErr: true},
		{name: "close before open", payload: map[string]dto.DayHoursPayload{"monday": {Open: "18:00", Close: "09:00"}}, wantErr: true},
		{name: "half break", payload: map[string]dto.DayHoursPayload{"monday": {Open: "09:00", Close: "18:00", BreakStart: strPtr("12:00")}}, wantErr: true},
		{name: "break outside hours", payload: map[string]dto.DayHoursPayload{"monday": {Open: "09:00", Close: "18:00", BreakStart: strPtr("17:30"), BreakEnd: strPtr("19:00")}}, wantErr: true},
		{name: "inverted break", payload: map[string]dto.DayHoursPayload{"monday": {Open: "09:00", Close: "18:00", BreakStart: strPtr("13:00"), BreakEnd: strPtr("12:00")}}, wantErr: true},
		{name: "24x7 without hours", is24x7: true},
		{name: "24x7 with hours", payload: map[string]dto.DayHoursPayload{"monday": {Open: "09:00", Close: "18:00"}}, is24x7: true, wantErr: true},
		{name: "duplicate day in different case", payload: map[string]dto.DayHoursPayload{"monday": {Open: "09:00", Close: "18:00"}, "MONDAY": {Open: "10:00", Close: "18:00"}}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hours, err := normalizeWorkHours(tc.payload, tc.is24x7)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Len(t, hours, len(tc.payload))
		})
	}
}

func TestProfileLookups(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()

	specialist := m.register(t, models.RoleSpecialist, "spec_profile")

	me, err := m.profiles.Me(ctx, specialist)
	require.NoError(t, err)
	require.Equal(t, "spec_profile@example.com", me.Email)
	require.Equal(t, []string{"Cardiology"}, me.Specialist.Specifications)

	public, err := m.profiles.Public(ctx, specialist.ID)
	require.NoError(t, err)
	require.Equal(t, "spec_profile", public.Nickname)

	_, err = m.profiles.ByRole(ctx, specialist.ID, models.RolePatient)
	require.ErrorIs(t, err, ErrRoleMismatch)

	_, err = m.profiles.Public(ctx, 4242)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestClinicRejectsBlankText(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	org := m.register(t, models.RoleOrganization, "org_blank")

	_, err := m.clinics.Create(ctx, org, clinicPayload("    ", "Berlin"))
	require.ErrorIs(t, err, ErrValidation)

	blankAddress := clinicPayload("Blank Address Clinic", "Berlin")
	blankAddress.Address = "  \n  "
	_, err = m.clinics.Create(ctx, org, blankAddress)
	require.ErrorIs(t, err, ErrValidation)

	clinic, err := m.clinics.Create(ctx, org, clinicPayload("  Trimmed Clinic  ", " Dresden "))
	require.NoError(t, err)
	require.Equal(t, "Trimmed Clinic", clinic.Name)
	require.Equal(t, "Dresden", clinic.Location)

	for _, req := range []dto.ClinicUpdateRequest{
		{Address: strPtr("     ")},
		{Name: strPtr(" x ")},
		{Location: strPtr("   ")},
	} {
		_, err = m.clinics.Update(ctx, org, clinic.ID, req)
		require.ErrorIs(t, err, ErrValidation)
	}

	reloaded, err := m.clinics.Get(ctx, clinic.ID)
	require.NoError(t, err)
	require.Equal(t, "Hauptstrasse 12", reloaded.Address)
	require.Equal(t, "Trimmed Clinic", reloaded.Name)
}
