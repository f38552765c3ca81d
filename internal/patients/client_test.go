package patients

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"caremind/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, contentType, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", contentType)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
	}
}

func testClient(fn roundTripFunc) *Client {
	client := NewClient(config.Config{RecordsAPIBaseURL: "https://records.test/medihack_api", RecordsTimeoutMs: 1000})
	client.httpClient = &http.Client{Transport: fn}
	return client
}

func TestGetPatientInfo(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/medihack_api/get_patient_info.php", r.URL.Path)
		require.Equal(t, "AN1", r.URL.Query().Get("an"))
		return respond(http.StatusOK, "application/json", `{"an":"AN1","name":"Avery","age":67,"ward":"4A","drugs":[{"drug_name":"Furosemide","dose_qty":"40","dose_unit":"mg","usage_text":"daily"}]}`), nil
	})

	info, err := client.GetPatientInfo(context.Background(), "AN1")
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, "AN1", info.AN)
	require.Equal(t, "Avery", info.Name)
	require.Equal(t, "67", info.Age)
	require.Equal(t, "4A", info.Ward)
	require.Len(t, info.Raw["drugs"], 1)
}

func TestGetPatientInfoErrorBodyIsAbsent(t *testing.T) {
	for _, body := range []string{`{"error":"not found"}`, ``, `{}`} {
		client := testClient(func(r *http.Request) (*http.Response, error) {
			return respond(http.StatusOK, "application/json", body), nil
		})
		info, err := client.GetPatientInfo(context.Background(), "AN404")
		require.NoError(t, err, body)
		require.Nil(t, info, body)
	}
}

func TestGetPatientInfoSurfacesHTMLErrorText(t *testing.T) {
	attempts := 0
	client := testClient(func(r *http.Request) (*http.Response, error) {
		attempts++
		return respond(http.StatusInternalServerError, "text/html", `<html><head><style>b{}</style></head><body><b>Warning</b>: mysqli_connect(): Access denied</body></html>`), nil
	})

	_, err := client.GetPatientInfo(context.Background(), "AN1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=500")
	require.Contains(t, err.Error(), "Warning: mysqli_connect(): Access denied")
	require.NotContains(t, err.Error(), "<b>")
	require.Equal(t, 1, attempts)
}

func TestErrorTextTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("ผู้ป่วย", 60)
	text := errorText("text/plain", []byte(body))
	require.True(t, utf8.ValidString(text))
	require.Equal(t, maxErrorTextRunes, utf8.RuneCountInString(text))
	require.True(t, strings.HasPrefix(body, text))

	require.Equal(t, "short", errorText("text/plain", []byte(" short ")))
}

func TestGetPatientList(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/medihack_api/get_patient_list.php", r.URL.Path)
		return respond(http.StatusOK, "application/json", `{"data":["AN1"," AN2 ",{"an":"AN3"},""]}`), nil
	})

	ans, err := client.GetPatientList(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"AN1", "AN2", "AN3"}, ans)
}

func TestMissingBaseURL(t *testing.T) {
	client := NewClient(config.Config{})
	_, err := client.GetPatientList(context.Background())
	require.ErrorIs(t, err, ErrMissingBaseURL)
}

func TestChartFromRecord(t *testing.T) {
	info := ToPatientInfo("AN1", map[string]any{
		"drugs": []any{map[string]any{"drug_name": "Metoprolol", "dose_qty": "25", "dose_unit": "mg", "usage_text": "BID"}},
		"labs":  []any{map[string]any{"test": "WBC", "lab_result": "14.2", "flagged": true, "verify_date": "2026-02-13 08:00:00"}},
		"xrays": []any{map[string]any{"item_name": "Chest X-ray", "verify_date": "2026-02-12"}},
	})

	chart := ChartFromRecord(info)
	require.Equal(t, "AN1", chart.PatientID)
	require.Len(t, chart.Meds, 1)
	require.Equal(t, "25 mg", chart.Meds[0].Dosage)
	require.Equal(t, "Active", chart.Meds[0].Status)
	require.Equal(t, "AN1-drug-1", chart.Meds[0].OrderID)
	require.Len(t, chart.Labs, 1)
	require.Equal(t, "Abnormal", chart.Labs[0].Results["WBC"].Flag)
	require.Equal(t, []string{"WBC"}, chart.Labs[0].ResultOrder)
	require.Len(t, chart.Imaging, 1)
	require.Equal(t, "Chest X-ray", chart.Imaging[0].ExamType)
}
