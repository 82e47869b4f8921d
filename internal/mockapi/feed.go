package mockapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brainboard/brainboard/internal/core"
)

// Search limits.
const (
	MinSearchQuery   = 2
	MaxSearchResults = 8
)

var (
	errPostNotFound    = errors.New("post not found")
	errCommentNotFound = errors.New("comment not found")
)

type postRecord struct {
	post     core.Post
	likedBy  map[string]bool
	comments []*commentRecord
}

type commentRecord struct {
	comment core.Comment
	likedBy map[string]bool
}

// feed holds posts, comments and likes in memory.
type feed struct {
	mu      sync.RWMutex
	posts   map[string]*postRecord
	catalog []core.SearchItem
}

func newFeed() *feed {
	return &feed{posts: make(map[string]*postRecord)}
}

func (f *feed) add(post core.Post, comments ...core.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post.CommentCount = len(comments)
	record := &postRecord{post: post, likedBy: make(map[string]bool)}
	for _, comment := range comments {
		record.comments = append(record.comments, newCommentRecord(comment))
	}
	f.posts[post.ID] = record
}

func newCommentRecord(comment core.Comment) *commentRecord {
	return &commentRecord{comment: comment, likedBy: make(map[string]bool)}
}

func (r *postRecord) view(userID string) core.Post {
	post := r.post
	post.Likes += len(r.likedBy)
	post.LikedByMe = r.likedBy[userID]
	post.CommentCount = len(r.comments)
	return post
}

func (r *commentRecord) view(userID string) core.Comment {
	comment := r.comment
	comment.Likes += len(r.likedBy)
	comment.LikedByMe = r.likedBy[userID]
	return comment
}

func toggle(likedBy map[string]bool, userID string) {
	if likedBy[userID] {
		delete(likedBy, userID)
	} else {
		likedBy[userID] = true
	}
}

// list returns posts of postType (all when empty) in the requested order.
func (f *feed) list(userID string, postType core.PostType, order string, limit int) []core.Post {
	f.mu.RLock()
	posts := make([]core.Post, 0, len(f.posts))
	for _, record := range f.posts {
		if postType != "" && record.post.Type != postType {
			continue
		}
		posts = append(posts, record.view(userID))
	}
	f.mu.RUnlock()

	newer := func(a, b core.Post) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		switch order {
		case core.SortPopular:
			if a.Likes != b.Likes {
				return a.Likes > b.Likes
			}
		case core.SortCommented:
			if a.CommentCount != b.CommentCount {
				return a.CommentCount > b.CommentCount
			}
		}
		return newer(a, b)
	})

	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

func (f *feed) create(post core.Post) core.Post {
	f.add(post)
	return post
}

// toggleLike flips userID's like on postID.
func (f *feed) toggleLike(userID, postID string) (core.LikeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.posts[postID]
	if !ok {
		return core.LikeResult{}, errPostNotFound
	}
	toggle(record.likedBy, userID)
	view := record.view(userID)
	return core.LikeResult{PostID: postID, Liked: view.LikedByMe, Likes: view.Likes}, nil
}

// toggleCommentLike flips userID's like on one comment of postID.
func (f *feed) toggleCommentLike(userID, postID, commentID string) (core.LikeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.posts[postID]
	if !ok {
		return core.LikeResult{}, errPostNotFound
	}
	for _, c := range record.comments {
		if c.comment.ID != commentID {
			continue
		}
		toggle(c.likedBy, userID)
		view := c.view(userID)
		return core.LikeResult{PostID: postID, CommentID: commentID, Liked: view.LikedByMe, Likes: view.Likes}, nil
	}
	return core.LikeResult{}, errCommentNotFound
}

// comments lists the comments on postID as userID sees them.
func (f *feed) comments(userID, postID string) ([]core.Comment, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	record, ok := f.posts[postID]
	if !ok {
		return nil, errPostNotFound
	}
	comments := make([]core.Comment, 0, len(record.comments))
	for _, c := range record.comments {
		comments = append(comments, c.view(userID))
	}
	return comments, nil
}

func (f *feed) comment(comment core.Comment) (core.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.posts[comment.PostID]
	if !ok {
		return core.Comment{}, errPostNotFound
	}
	record.comments = append(record.comments, newCommentRecord(comment))
	return comment, nil
}

func (f *feed) size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.posts)
}

// search matches query case-insensitively against title, description and
// type. Queries shorter than MinSearchQuery match nothing.
func (f *feed) search(query string) []core.SearchItem {
	needle := strings.ToLower(strings.TrimSpace(query))
	results := []core.SearchItem{}
	if len([]rune(needle)) < MinSearchQuery {
		return results
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, item := range f.catalog {
		if strings.Contains(strings.ToLower(item.Title), needle) ||
			strings.Contains(strings.ToLower(item.Desc), needle) ||
			strings.Contains(strings.ToLower(item.Type), needle) {
			results = append(results, item)
			if len(results) == MaxSearchResults {
				break
			}
		}
	}
	return results
}

func (f *feed) setCatalog(items []core.SearchItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog = append([]core.SearchItem(nil), items...)
}

// seedFeed loads the sample board: three posts from classmates, two answers
// on the biology question and the search catalogue.
func seedFeed(f *feed, now time.Time) {
	f.setCatalog([]core.SearchItem{
		{Title: "Calculus 101", Type: "Course", Desc: "Advanced calculus and derivatives"},
		{Title: "Physics Study Group", Type: "Group", Desc: "Weekly physics problem solving"},
		{Title: "Alice Cooper", Type: "Student", Desc: "Mathematics major, 3rd year"},
		{Title: "Bob Wilson", Type: "Student", Desc: "Biology major, 2nd year"},
		{Title: "Chemistry Lab Report", Type: "Discussion", Desc: "Need help with organic chemistry lab"},
		{Title: "Linear Algebra Help", Type: "Question", Desc: "Matrix multiplication confusion"},
		{Title: "Study Tips for Finals", Type: "Tip", Desc: "Effective preparation strategies"},
		{Title: "Computer Science Club", Type: "Group", Desc: "Programming and algorithms discussion"},
		{Title: "Statistics 201", Type: "Course", Desc: "Probability and statistical inference"},
		{Title: "Carol Smith", Type: "Student", Desc: "Psychology major, 4th year"},
	})

	calculus := now.Add(-2 * time.Hour)
	f.add(core.Post{
		ID:         newID(calculus),
		AuthorID:   "seed-alice",
		AuthorName: "Alice Cooper",
		Type:       core.PostTypeDiscussion,
		Content:    "Just finished my calculus assignment! The integration problems were challenging but I finally got the hang of it. Anyone else working on similar topics?",
		Likes:      15,
		CreatedAt:  calculus,
	})

	biology := now.Add(-4 * time.Hour)
	biologyID := newID(biology)
	f.add(core.Post{
		ID:         biologyID,
		AuthorID:   "seed-bob",
		AuthorName: "Bob Wilson",
		Type:       core.PostTypeQuestion,
		Content:    "Can someone help me understand the difference between mitosis and meiosis? I keep getting confused about the phases.",
		Likes:      8,
		CreatedAt:  biology,
	},
		core.Comment{
			ID:         newID(now.Add(-time.Hour)),
			PostID:     biologyID,
			AuthorName: "Dr. Sarah Johnson",
			Content:    "Great question! Mitosis produces two identical diploid cells, while meiosis produces four genetically different haploid gametes. Think of mitosis as &quot;copy&quot; and meiosis as &quot;shuffle&quot;.",
			Likes:      8,
			CreatedAt:  now.Add(-time.Hour),
		},
		core.Comment{
			ID:         newID(now.Add(-30 * time.Minute)),
			PostID:     biologyID,
			AuthorName: "Mike Chen",
			Content:    "I found it helpful to remember: Mitosis = Same, Meiosis = Mix. Also, meiosis has two divisions while mitosis has one.",
			Likes:      5,
			CreatedAt:  now.Add(-30 * time.Minute),
		},
	)

	tip := now.Add(-24 * time.Hour)
	f.add(core.Post{
		ID:         newID(tip),
		AuthorID:   "seed-carol",
		AuthorName: "Carol Smith",
		Type:       core.PostTypeDiscussion,
		Content:    "Study tip: Use the Pomodoro Technique! 25 minutes of focused study, then a 5-minute break. It really helps with concentration and retention.",
		Likes:      42,
		CreatedAt:  tip,
	})
}
