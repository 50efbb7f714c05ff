package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/models"
	"github.com/cas-gradtrack/gradtrack/internal/testutil"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employmentRouter(t *testing.T) *gin.Engine {
	r := setupHandlerTest(t)

	route(r, http.MethodGet, "/records", ListEmploymentRecords, types.RoleGraduating, types.RoleGraduated)
	route(r, http.MethodPost, "/records", CreateEmploymentRecord, types.RoleGraduating, types.RoleGraduated)
	route(r, http.MethodPut, "/records/:record_id", UpdateEmploymentRecord, types.RoleGraduating, types.RoleGraduated)
	route(r, http.MethodDelete, "/records/:record_id", DeleteEmploymentRecord, types.RoleGraduating, types.RoleGraduated)

	return r
}

func recordBody(start, end string) map[string]interface{} {
	body := map[string]interface{}{
		"company_name":         "Acme Corp",
		"job_title":            "Software Engineer",
		"employment_type":      "full-time",
		"start_date":           start,
		"is_related_to_degree": true,
	}
	if end != "" {
		body["end_date"] = end
	}
	return body
}

func TestEmploymentRecordValidation(t *testing.T) {
	r := employmentRouter(t)
	user := testutil.CreateUser(t, "Olga", "olga@example.edu", types.RoleGraduated)
	token := testutil.Token(t, user)

	cases := []struct {
		name    string
		body    map[string]interface{}
		message string
	}{
		{"end before start", recordBody("2023-05-01", "2023-01-01"), "end_date cannot be before start_date"},
		{"bad start", recordBody("May 2023", ""), "start_date must be formatted YYYY-MM-DD"},
		{"current with end", func() map[string]interface{} {
			b := recordBody("2023-01-01", "2023-06-01")
			b["is_current"] = true
			return b
		}(), "current employment cannot have an end_date"},
		{"bad type", func() map[string]interface{} {
			b := recordBody("2023-01-01", "")
			b["employment_type"] = "volunteer"
			return b
		}(), "employment_type must be one of: full-time part-time contract self-employed internship"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(t, r, http.MethodPost, "/records", token, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.message, decodeBody(t, w)["error"])
		})
	}
}

func TestCreateEmploymentRecord_CurrentUpdatesSummary(t *testing.T) {
	r := employmentRouter(t)
	user := testutil.CreateUser(t, "Pia", "pia@example.edu", types.RoleGraduated)
	token := testutil.Token(t, user)

	w := performRequest(t, r, http.MethodPost, "/records", token, recordBody("2021-01-01", "2022-01-01"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, false, decodeBody(t, w)["employment_record"].(map[string]interface{})["is_current"])

	var profile models.Profile
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, types.EmploymentNotTracked, profile.EmploymentStatus)

	body := recordBody("2022-02-01", "")
	body["employment_type"] = "self-employed"
	body["company_name"] = "Pia Studio"
	w = performRequest(t, r, http.MethodPost, "/records", token, body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["employment_record"].(map[string]interface{})["is_current"])

	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, types.EmploymentSelfEmployed, profile.EmploymentStatus)
	assert.Equal(t, "Pia Studio", profile.CurrentEmployer)

	w = performRequest(t, r, http.MethodGet, "/records", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decodeBody(t, w)["employment_records"].([]interface{})
	require.Len(t, records, 2)
	assert.Equal(t, "Pia Studio", records[0].(map[string]interface{})["company_name"], "newest first")
}

func TestUpdateAndDeleteEmploymentRecord(t *testing.T) {
	r := employmentRouter(t)
	owner := testutil.CreateUser(t, "Quin", "quin@example.edu", types.RoleGraduated)
	other := testutil.CreateUser(t, "Rae", "rae@example.edu", types.RoleGraduated)
	token := testutil.Token(t, owner)

	w := performRequest(t, r, http.MethodPost, "/records", token, recordBody("2020-01-01", "2020-12-31"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := uint(decodeBody(t, w)["employment_record"].(map[string]interface{})["id"].(float64))
	path := fmt.Sprintf("/records/%d", id)

	w = performRequest(t, r, http.MethodPut, path, testutil.Token(t, other), recordBody("2020-01-01", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(t, r, http.MethodPut, "/records/abc", token, recordBody("2020-01-01", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	update := recordBody("2020-01-01", "")
	update["job_title"] = "Senior Engineer"
	w = performRequest(t, r, http.MethodPut, path, token, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	record := decodeBody(t, w)["employment_record"].(map[string]interface{})
	assert.Equal(t, "Senior Engineer", record["job_title"])
	assert.Nil(t, record["end_date"])

	var profile models.Profile
	require.NoError(t, db.DB.Where("user_id = ?", owner.ID).First(&profile).Error)
	assert.Equal(t, types.EmploymentEmployed, profile.EmploymentStatus)
	assert.Equal(t, "Senior Engineer", profile.CurrentJobTitle)

	w = performRequest(t, r, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.DB.Model(&models.EmploymentRecord{}).Where("id = ?", id).Count(&count).Error)
	assert.Zero(t, count)

	w = performRequest(t, r, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
