package e2e

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestReminderLifecycle walks an invoice from creation through automatic
// scheduling to settlement, and checks the schedule follows along.
func TestReminderLifecycle(t *testing.T) {
	// Account on the pro tier so branding can be exercised too.
	resp, body := httpPost(t, apiURL+"/accounts", map[string]any{
		"name":         "e2e-lifecycle",
		"company_name": "E2E Lifecycle AS",
		"timezone":     "Europe/Oslo",
	})
	require.Equal(t, 201, resp.StatusCode, "create account: %s", body)
	accountID := parseJSON(t, body)["id"].(string)

	resp, body = httpPut(t, apiURL+"/accounts/"+accountID+"/tier", map[string]any{"tier": "pro"})
	require.Equal(t, 200, resp.StatusCode, "set tier: %s", body)

	resp, body = httpPost(t, apiURL+"/accounts/"+accountID+"/customers", map[string]any{
		"name":  "Globex Corp",
		"email": "ap@globex.test",
	})
	require.Equal(t, 201, resp.StatusCode, "create customer: %s", body)
	customerID := parseJSON(t, body)["id"].(string)

	// Enable automatic reminders before the invoice exists.
	resp, body = httpPut(t, apiURL+"/accounts/"+accountID+"/reminder-policy", map[string]any{
		"first_offset_days":  3,
		"second_offset_days": 7,
		"final_offset_days":  14,
		"auto_enabled":       true,
		"weekdays_only":      true,
	})
	require.Equal(t, 200, resp.StatusCode, "put policy: %s", body)

	due := time.Now().UTC().AddDate(0, 0, 10)
	resp, body = httpPost(t, apiURL+"/accounts/"+accountID+"/invoices", map[string]any{
		"customer_id":  customerID,
		"number":       "E2E-001",
		"amount_cents": 125000,
		"currency":     "USD",
		"issue_date":   time.Now().UTC().Format(time.RFC3339),
		"due_date":     due.Format(time.RFC3339),
	})
	require.Equal(t, 201, resp.StatusCode, "create invoice: %s", body)
	invoiceID := parseJSON(t, body)["id"].(string)

	// Creation reconciles: three scheduled reminders, ordered by fire time.
	resp, body = httpGet(t, apiURL+"/invoices/"+invoiceID+"/schedule")
	require.Equal(t, 200, resp.StatusCode, body)
	entries := parseJSONList(t, body)
	require.Len(t, entries, 3)
	var prev string
	for _, e := range entries {
		require.Equal(t, "scheduled", e["state"])
		fireAt := e["fire_at"].(string)
		require.Greater(t, fireAt, prev, "entries should be ordered by fire_at")
		prev = fireAt
	}

	resp, body = httpGet(t, apiURL+"/accounts/"+accountID+"/schedule/upcoming?days=60")
	require.Equal(t, 200, resp.StatusCode, body)
	require.Len(t, parseJSONList(t, body), 3)

	// Settling the invoice cancels everything pending.
	resp, body = httpPost(t, apiURL+"/invoices/"+invoiceID+"/mark-paid", nil)
	require.Equal(t, 200, resp.StatusCode, "mark paid: %s", body)

	resp, body = httpGet(t, apiURL+"/invoices/"+invoiceID+"/schedule")
	require.Equal(t, 200, resp.StatusCode, body)
	for _, e := range parseJSONList(t, body) {
		require.Equal(t, "cancelled", e["state"])
	}

	// Manual sends against a settled invoice are refused.
	resp, body = httpPost(t, apiURL+"/invoices/"+invoiceID+"/send-now", nil)
	require.Equal(t, 409, resp.StatusCode, "send-now on paid invoice: %s", body)

	httpDelete(t, apiURL+"/invoices/"+invoiceID)
}

func TestReminderPolicyOrderingRejected(t *testing.T) {
	resp, body := httpPost(t, apiURL+"/accounts", map[string]any{
		"name":         "e2e-policy-order",
		"company_name": "E2E Policy AS",
	})
	require.Equal(t, 201, resp.StatusCode, body)
	accountID := parseJSON(t, body)["id"].(string)

	resp, body = httpPut(t, apiURL+"/accounts/"+accountID+"/reminder-policy", map[string]any{
		"first_offset_days":  7,
		"second_offset_days": 3,
		"auto_enabled":       true,
	})
	require.Equal(t, 422, resp.StatusCode, "out-of-order offsets: %s", body)
}

func TestBrandingFooterTierRules(t *testing.T) {
	resp, body := httpPost(t, apiURL+"/accounts", map[string]any{
		"name":         "e2e-branding",
		"company_name": "E2E Branding AS",
	})
	require.Equal(t, 201, resp.StatusCode, body)
	accountID := parseJSON(t, body)["id"].(string)
	footerURL := fmt.Sprintf("%s/accounts/%s/footer", apiURL, accountID)

	// Free tier: footer always on, toggle refused.
	resp, body = httpGet(t, footerURL)
	require.Equal(t, 200, resp.StatusCode, body)
	cfg := parseJSON(t, body)
	require.Equal(t, true, cfg["should_include"])
	require.Equal(t, false, cfg["can_toggle"])

	resp, body = httpPut(t, footerURL, map[string]any{"hide": true})
	require.Equal(t, 403, resp.StatusCode, "free tier hide: %s", body)

	// Upgrade, hide, then downgrade: the preference must not survive.
	resp, body = httpPut(t, apiURL+"/accounts/"+accountID+"/tier", map[string]any{"tier": "enterprise"})
	require.Equal(t, 200, resp.StatusCode, body)

	resp, body = httpPut(t, footerURL, map[string]any{"hide": true})
	require.Equal(t, 200, resp.StatusCode, body)
	require.Equal(t, false, parseJSON(t, body)["should_include"])

	resp, body = httpPut(t, apiURL+"/accounts/"+accountID+"/tier", map[string]any{"tier": "free"})
	require.Equal(t, 200, resp.StatusCode, body)

	resp, body = httpGet(t, footerURL)
	require.Equal(t, 200, resp.StatusCode, body)
	cfg = parseJSON(t, body)
	require.Equal(t, true, cfg["should_include"])
	require.Equal(t, false, cfg["current_setting"], "downgrade should clear the hide preference")
}
