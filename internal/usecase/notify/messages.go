package notify

import (
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
)

// DailyNotification is sent to every customer with a positive rebate for the previous day.
func DailyNotification(recipient domain.RebateRecipient) string {
	var b strings.Builder
	b.WriteString("📣 *Daily rebate notice*\n\n")
	b.WriteString("Your rebate for yesterday has been calculated:\n\n")
	fmt.Fprintf(&b, "💰 Trading volume: *≈%s USDT*\n", recipient.VolumeEstimate.StringFixed(2))
	fmt.Fprintf(&b, "💵 Rebate: *%s USDT*\n\n", recipient.Rebate.StringFixed(2))
	b.WriteString("The amount has been credited to your account. Thank you for trading with us! 🎉")
	return b.String()
}

// AdminSummary reports the outcome of a daily run to the operator.
func AdminSummary(stats *domain.OverallStats, attempted int) string {
	var b strings.Builder
	b.WriteString("📊 *Daily statistics report*\n\n")
	fmt.Fprintf(&b, "👥 Total customers: %d\n", stats.TotalCustomers)
	fmt.Fprintf(&b, "💰 Today's volume: ≈%s USDT\n", stats.TodayVolume.StringFixed(2))
	fmt.Fprintf(&b, "📤 Notifications sent: %d", attempted)
	return b.String()
}

func AdminFailureNotice(runID string) string {
	return fmt.Sprintf("⚠️ *Task failure*\n\nThe daily sync job failed (run `%s`). Please check the logs.", runID)
}
