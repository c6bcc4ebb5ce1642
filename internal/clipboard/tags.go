package clipboard

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	pathPattern   = regexp.MustCompile(`^(/[\w\-.~]+)+/?$|^[A-Za-z]:[\\/][\w\\/\-.~]+$`)
	numberPattern = regexp.MustCompile(`^[-+]?\d[\d,_]*(\.\d+)?$`)
	hostPattern   = regexp.MustCompile(`(?i)^[a-z0-9-]+(\.[a-z0-9-]+)*\.[a-z]{2,}(:\d+)?(/\S*)?$`)

	codePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*<\?xml`),
		regexp.MustCompile(`(?i)^\s*<(!DOCTYPE|html|head|body)`),
		regexp.MustCompile(`^\s*(fn|func|def|class|import|export|package)\s+\w`),
		regexp.MustCompile(`^\s*(let|const|var)\s+\w+\s*=`),
		regexp.MustCompile(`^\s*#[ \t]*(include|define|ifdef|ifndef|endif|pragma)`),
	}
)

var commandPrefixes = []string{
	"$ ", "git ", "npm ", "pnpm ", "yarn ", "cargo ", "go ", "docker ", "ssh ",
	"sudo ", "./", "~/", "apt ", "brew ", "python ", "pip ", "kubectl ", "make ",
}

var appGroups = []struct {
	tag   string
	names []string
}{
	{"#editor", []string{"code", "vscodium", "editor", "nvim", "vim", "helix", "goland", "zed"}},
	{"#terminal", []string{"terminal", "konsole", "alacritty", "wezterm", "kitty", "xterm", "iterm", "ghostty"}},
	{"#browser", []string{"firefox", "chrome", "chromium", "brave", "safari", "browser", "vivaldi"}},
	{"#chat", []string{"discord", "telegram", "slack", "signal", "element", "whatsapp"}},
	{"#notes", []string{"notion", "obsidian", "joplin", "logseq"}},
}

// AutoTags derives search tags from a clip's content and the application it
// was copied from. The result is sorted and free of duplicates.
func AutoTags(content, appName string) []string {
	set := make(map[string]struct{})
	add := func(tag string) { set[tag] = struct{}{} }

	s := strings.TrimSpace(content)
	if s != "" {
		if isURL(s) {
			add("#url")
		}
		if emailPattern.MatchString(s) {
			add("#email")
		}
		if pathPattern.MatchString(s) {
			add("#path")
		}
		if numberPattern.MatchString(s) {
			add("#number")
		}
		if looksLikeCommand(s) {
			add("#command")
		}
		if looksLikeCode(s) {
			add("#code")
		}
		if strings.Contains(s, "\n") {
			add("#multiline")
		}
	}

	if app := strings.ToLower(strings.TrimSpace(appName)); app != "" {
		for _, group := range appGroups {
			if containsAny(app, group.names) {
				add(group.tag)
				break
			}
		}
		add("#" + strings.ReplaceAll(app, " ", "-"))
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func isURL(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		return true
	}
	return hostPattern.MatchString(s) && !emailPattern.MatchString(s) && !numberPattern.MatchString(s)
}

func looksLikeCommand(s string) bool {
	for _, p := range commandPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return strings.Contains(s, " | ") || strings.Contains(s, " && ")
}

func looksLikeCode(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		for _, re := range codePatterns {
			if re.MatchString(line) {
				return true
			}
		}
	}
	if strings.Contains(s, "{") && strings.Contains(s, "}") {
		return true
	}
	return strings.Contains(s, ";") && strings.Contains(s, "=")
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
