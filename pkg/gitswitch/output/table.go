package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/store"
)

func WriteAccountTable(w io.Writer, accounts []store.Account) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "USERNAME\tAUTH\tCREATED\tID")
	for _, a := range accounts {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Username, a.AuthMethod, formatTime(a.CreatedAt), a.ID)
	}
	_ = tw.Flush()
}

func WriteMappingTable(w io.Writer, mappings []store.RepositoryMapping, usernames map[string]string) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "REMOTE\tACCOUNT\tREMEMBER\tCREATED\tID")
	for _, m := range mappings {
		account := usernames[m.AccountID]
		if account == "" {
			account = "<deleted>"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", m.RemoteURL, account, m.Remember, formatTime(m.CreatedAt), m.ID)
	}
	_ = tw.Flush()
}

func WriteScopeList(w io.Writer, scopes []string) {
	if len(scopes) == 0 {
		_, _ = fmt.Fprintln(w, "Scopes: (none reported)")
		return
	}
	_, _ = fmt.Fprintf(w, "Scopes: %s\n", strings.Join(scopes, ", "))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
