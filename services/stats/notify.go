package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"tokenwatch-backend/lib/scrapers/financie"
	"tokenwatch-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// Notifier posts run summaries to a discord-style webhook.
type Notifier struct {
	webhookUrl string
	http       *resty.Client
}

func NewNotifier(webhookUrl string) *Notifier {
	client := resty.New()
	client.SetTimeout(time.Second * 10)
	telemetry.InstrumentResty(client, "services/stats/webhook")

	return &Notifier{webhookUrl: webhookUrl, http: client}
}

// Send posts the message. An unset webhook url is a no-op, not an
// error.
func (n *Notifier) Send(ctx context.Context, message string) error {
	if n.webhookUrl == "" {
		slog.InfoContext(ctx, "webhook url not set, skipping notification")
		return nil
	}

	res, err := n.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(map[string]string{"content": message}).
		Post(n.webhookUrl)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("webhook returned %s", res.Status())
	}
	return nil
}

// FormatMessage renders the fixed daily summary template.
func FormatMessage(postTime time.Time, snap financie.Snapshot, diff Diff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "◆FiNANCiE開運オロチトークン現在情報（%s）\n", postTime.Format("2006年01月02日 15:04時点"))
	fmt.Fprintf(&b, "・メンバー数 %s人（前日比 %s人）\n", groupDigits(snap.Members), signedCount(diff.Members))
	fmt.Fprintf(&b, "・トークン価格 %.4f円（前日比 %+.4f円）\n", snap.Price, diff.Price)
	fmt.Fprintf(&b, "・トークン在庫 %s枚（前日比 %s枚）\n", groupDigits(snap.Stock), signedCount(diff.Stock))
	if diff.HasPrior && diff.GapDays > 1 {
		fmt.Fprintf(&b, "※前回観測は%d日前（%s）\n", diff.GapDays, diff.PriorDate)
	}
	b.WriteString("#CNPオロチ #開運オロチ\n")
	return b.String()
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

func signedCount(n int64) string {
	if n < 0 {
		return groupDigits(n)
	}
	return "+" + groupDigits(n)
}
