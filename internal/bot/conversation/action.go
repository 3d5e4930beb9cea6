package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filestash/internal/common"
)

// ActionKind enumerates the button intents.
type ActionKind int

const (
	ActUnknown ActionKind = iota
	ActMenuFiles
	ActMenuCategories
	ActMenuDelete
	ActHelp
	ActCategory
	ActCreateCategory
	ActBrowse
	ActPage
	ActAddFiles
	ActDelete
	ActBackToMenu
	ActBackToCategories
	ActDone
	ActIgnore
)

// Action is a parsed button token.
type Action struct {
	Kind     ActionKind
	Category string
	Page     int
}

var fixedTokens = map[string]ActionKind{
	"menu_files":          ActMenuFiles,
	"menu_categories":     ActMenuCategories,
	"menu_delete":         ActMenuDelete,
	"help":                ActHelp,
	"create_new_category": ActCreateCategory,
	"back_to_menu":        ActBackToMenu,
	"back_to_categories":  ActBackToCategories,
	"done":                ActDone,
	"ignore":              ActIgnore,
}

// prefixed tokens carry a category name; order matters only in that no
// prefix is a prefix of another.
var prefixTokens = []struct {
	prefix string
	kind   ActionKind
}{
	{"category_", ActCategory},
	{"browse_", ActBrowse},
	{"page_", ActPage},
	{"add_files_", ActAddFiles},
	{"delete_", ActDelete},
}

// ParseAction decodes a button token. Unknown or malformed tokens return
// common.ErrInvalidToken.
func ParseAction(token string) (Action, error) {
	if k, ok := fixedTokens[token]; ok {
		return Action{Kind: k}, nil
	}

	for _, p := range prefixTokens {
		rest, ok := strings.CutPrefix(token, p.prefix)
		if !ok {
			continue
		}
		if p.kind == ActPage {
			return parsePage(token, rest)
		}
		if rest == "" {
			return Action{}, fmt.Errorf("%w: %q has no category", common.ErrInvalidToken, token)
		}
		return Action{Kind: p.kind, Category: rest}, nil
	}

	return Action{}, fmt.Errorf("%w: %q", common.ErrInvalidToken, token)
}

// parsePage splits "<name>_<n>" on the last underscore so names may contain
// underscores themselves.
func parsePage(token, rest string) (Action, error) {
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 {
		return Action{}, fmt.Errorf("%w: %q", common.ErrInvalidToken, token)
	}
	n, err := strconv.Atoi(rest[i+1:])
	if err != nil || n < 1 {
		return Action{}, fmt.Errorf("%w: bad page in %q", common.ErrInvalidToken, token)
	}
	return Action{Kind: ActPage, Category: rest[:i], Page: n}, nil
}

// Token encodes the action as button callback data.
func (a Action) Token() string {
	for tok, k := range fixedTokens {
		if k == a.Kind {
			return tok
		}
	}
	for _, p := range prefixTokens {
		if p.kind != a.Kind {
			continue
		}
		if a.Kind == ActPage {
			return p.prefix + a.Category + "_" + strconv.Itoa(a.Page)
		}
		return p.prefix + a.Category
	}
	return ""
}

func MenuFiles() Action { return Action{Kind: ActMenuFiles} }
func MenuCategories() Action { return Action{Kind: ActMenuCategories} }
func MenuDelete() Action { return Action{Kind: ActMenuDelete} }
func Help() Action { return Action{Kind: ActHelp} }
func CreateNew() Action { return Action{Kind: ActCreateCategory} }
func BackToMenu() Action { return Action{Kind: ActBackToMenu} }
func BackToCategories() Action { return Action{Kind: ActBackToCategories} }
func Done() Action { return Action{Kind: ActDone} }
func Ignore() Action { return Action{Kind: ActIgnore} }
func SelectCategory(n string) Action { return Action{Kind: ActCategory, Category: n} }
func Browse(n string) Action { return Action{Kind: ActBrowse, Category: n} }
func AddFiles(n string) Action { return Action{Kind: ActAddFiles, Category: n} }
func Delete(n string) Action { return Action{Kind: ActDelete, Category: n} }

func PageOf(n string, page int) Action {
	return Action{Kind: ActPage, Category: n, Page: page}
}
