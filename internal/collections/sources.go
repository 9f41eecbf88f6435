package collections

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-fedi-core/internal/utils"
)

const (
	accountsDir     = "accounts"
	movedTable      = "actors_moved.txt"
	hideFollowsFlag = ".hideFollows"
	sharesFile      = "shares.json"
	lastSeenDir     = "lastseen"
)

// AccountDir returns {baseDir}/accounts/{nickname}@{domain}.
func AccountDir(baseDir, nickname, domain string) string {
	return filepath.Join(baseDir, accountsDir, nickname+"@"+utils.RemovePort(domain))
}

// readLines returns the trimmed non-empty lines of path. A file that is
// missing or vanishes mid-read yields whatever was read, never an error.
func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// FollowsHidden reports whether the account opted to hide who it follows
// and who follows it.
func FollowsHidden(accountDir string) bool {
	_, err := os.Stat(filepath.Join(accountDir, hideFollowsFlag))
	return err == nil
}

// SetFollowsHidden toggles the .hideFollows flag.
func SetFollowsHidden(accountDir string, hidden bool) error {
	p := filepath.Join(accountDir, hideFollowsFlag)
	if !hidden {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(accountDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, nil, 0o644)
}

// MovedAccounts reads {baseDir}/accounts/actors_moved.txt, one
// "oldHandle newHandle" pair per line.
func MovedAccounts(baseDir string) map[string]string {
	out := map[string]string{}
	for _, line := range readLines(filepath.Join(baseDir, accountsDir, movedTable)) {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out[strings.ToLower(fields[0])] = fields[1]
	}
	return out
}

// movedFollows returns the handles in following.txt and then followers.txt
// that appear as old handles in the moved table. A handle on both lists is
// returned once.
func movedFollows(baseDir, accountDir string) []string {
	moved := MovedAccounts(baseDir)
	if len(moved) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, name := range []string{"following.txt", "followers.txt"} {
		for _, h := range readLines(filepath.Join(accountDir, name)) {
			key := strings.ToLower(h)
			if _, ok := moved[key]; !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

// shareItems loads shares.json (item id -> share object) ordered by id.
func shareItems(accountDir string) []any {
	data, err := os.ReadFile(filepath.Join(accountDir, sharesFile))
	if err != nil {
		return nil
	}
	var shares map[string]map[string]any
	if err := json.Unmarshal(data, &shares); err != nil {
		return nil
	}
	ids := make([]string, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]any, 0, len(ids))
	for _, id := range ids {
		item := shares[id]
		if item == nil {
			item = map[string]any{}
		}
		if _, ok := item["id"]; !ok {
			item["id"] = id
		}
		out = append(out, item)
	}
	return out
}

// lastSeenPath maps an actor URL onto its lastseen file name.
func lastSeenPath(accountDir, actorURL string) string {
	return filepath.Join(accountDir, lastSeenDir, strings.ReplaceAll(actorURL, "/", "#")+".txt")
}

// RecordLastSeen stores the day number on which actorURL was last active.
func RecordLastSeen(accountDir, actorURL string, at time.Time) error {
	if err := os.MkdirAll(filepath.Join(accountDir, lastSeenDir), 0o755); err != nil {
		return err
	}
	days := strconv.FormatInt(daysSinceEpoch(at), 10)
	return os.WriteFile(lastSeenPath(accountDir, actorURL), []byte(days), 0o644)
}

func daysSinceEpoch(t time.Time) int64 {
	return t.Unix() / int64(24*time.Hour/time.Second)
}

// inactiveFollowers returns followers whose last recorded activity is more
// than days old. Followers with no record are not reported.
func inactiveFollowers(accountDir, httpPrefix string, days int, now time.Time) []string {
	today := daysSinceEpoch(now)
	var out []string
	for _, h := range readLines(filepath.Join(accountDir, "followers.txt")) {
		actor, ok := utils.HandleToActorURL(httpPrefix, h)
		if !ok {
			continue
		}
		data, err := os.ReadFile(lastSeenPath(accountDir, actor))
		if err != nil {
			continue
		}
		seen, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			continue
		}
		if today-seen > int64(days) {
			out = append(out, h)
		}
	}
	return out
}
