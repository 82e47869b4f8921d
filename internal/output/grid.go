package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/security"
	"github.com/brainboard/brainboard/internal/session"
)

const contentWidth = 60

// toGrid maps every result type the CLI prints onto rows.
func toGrid(v any) (grid, error) {
	switch value := v.(type) {
	case []core.Post:
		g := grid{header: []string{"ID", "Author", "Type", "Likes", "Comments", "Posted", "Content"}}
		for _, p := range value {
			likes := strconv.Itoa(p.Likes)
			if p.LikedByMe {
				likes += " ♥"
			}
			g.rows = append(g.rows, []string{p.ID, p.AuthorName, string(p.Type), likes,
				strconv.Itoa(p.CommentCount), timestamp(p.CreatedAt), truncate(p.Content, contentWidth)})
		}
		g.footer = fmt.Sprintf("%d posts", len(value))
		return g, nil
	case core.Post:
		return toGrid([]core.Post{value})
	case []core.Comment:
		g := grid{header: []string{"ID", "Author", "Likes", "Posted", "Content"}}
		for _, c := range value {
			likes := strconv.Itoa(c.Likes)
			if c.LikedByMe {
				likes += " ♥"
			}
			g.rows = append(g.rows, []string{c.ID, c.AuthorName, likes,
				timestamp(c.CreatedAt), truncate(c.Content, contentWidth)})
		}
		g.footer = fmt.Sprintf("%d comments", len(value))
		return g, nil
	case core.Comment:
		return toGrid([]core.Comment{value})
	case core.LikeResult:
		pairs := [][2]string{{"Post", value.PostID}}
		if value.CommentID != "" {
			pairs = append(pairs, [2]string{"Comment", value.CommentID})
		}
		pairs = append(pairs,
			[2]string{"Liked", yesNo(value.Liked)},
			[2]string{"Likes", strconv.Itoa(value.Likes)},
		)
		return keyValues("Like", pairs), nil
	case core.Profile:
		return keyValues("Profile", [][2]string{
			{"ID", value.ID},
			{"Name", value.DisplayName()},
			{"Email", value.Email},
			{"Phone", value.Phone},
			{"Newsletter", yesNo(value.Newsletter)},
			{"Member since", timestamp(value.CreatedAt)},
		}), nil
	case *core.Profile:
		if value == nil {
			return grid{}, nil
		}
		return toGrid(*value)
	case core.SearchResults:
		g := grid{title: fmt.Sprintf("Results for %q", value.Query), header: []string{"Title", "Type", "Description"}}
		for _, item := range value.Results {
			g.rows = append(g.rows, []string{item.Title, item.Type, item.Desc})
		}
		if len(value.Results) == 0 {
			g.footer = "No results found"
		}
		return g, nil
	case core.Upload:
		pairs := [][2]string{
			{"ID", value.ID},
			{"Name", value.Name},
			{"Type", string(value.Type)},
			{"MIME", value.MIME},
			{"Size", strconv.FormatInt(value.Size, 10) + " bytes"},
		}
		if value.Width > 0 {
			pairs = append(pairs,
				[2]string{"Dimensions", fmt.Sprintf("%dx%d", value.Width, value.Height)},
				[2]string{"Thumbnail", fmt.Sprintf("%dx%d", value.ThumbWidth, value.ThumbHeight)})
		}
		return keyValues("Upload", pairs), nil
	case session.Info:
		return keyValues("Session", [][2]string{
			{"Authenticated", yesNo(value.Authenticated)},
			{"Token expired", yesNo(value.Expired)},
			{"Expires at", timestamp(value.ExpiresAt)},
			{"Session start", timestamp(value.SessionStart)},
			{"CSRF token", value.CSRFToken},
		}), nil
	case security.PasswordReport:
		missing := strings.Join(value.Missing, ", ")
		if missing == "" {
			missing = "-"
		}
		return keyValues("Password strength", [][2]string{
			{"Valid", yesNo(value.Valid)},
			{"Level", value.Level},
			{"Score", fmt.Sprintf("%d/5", value.Score)},
			{"Missing", missing},
		}), nil
	case []RateLimitRow:
		g := grid{header: []string{"Key", "Requests", "Window start", "Backoff until", "Last 429"}}
		for _, row := range value {
			g.rows = append(g.rows, []string{row.Key, strconv.Itoa(row.State.RequestCount),
				timestamp(row.State.WindowStart), optionalTime(row.State.BackoffUntil), optionalTime(row.State.Last429At)})
		}
		g.footer = fmt.Sprintf("%d windows", len(value))
		return g, nil
	case Message:
		return grid{rows: [][]string{{value.Text}}}, nil
	case TextReport:
		return keyValues("Text check", [][2]string{
			{"Sanitized", value.Sanitized},
			{"SQL-like", yesNo(value.Injection.SQL)},
			{"Script-like", yesNo(value.Injection.Script)},
		}), nil
	default:
		return grid{}, fmt.Errorf("no table layout for %T", v)
	}
}

func keyValues(title string, pairs [][2]string) grid {
	g := grid{title: title, header: []string{"Field", "Value"}}
	for _, pair := range pairs {
		value := pair[1]
		if value == "" {
			value = "-"
		}
		g.rows = append(g.rows, []string{pair[0], value})
	}
	return g
}
