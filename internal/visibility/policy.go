package visibility

import (
	"fmt"
	"strings"
)

// Policy определяет, кто может изменять задачи с created_by == "all"
type Policy string

const (
	// PolicyOwner - изменять можно только задачи, где created_by совпадает с пользователем
	PolicyOwner Policy = "owner"
	// PolicyAuthor - дополнительно общие задачи, которые пользователь сам создал
	PolicyAuthor Policy = "author"
	// PolicyEveryone - общие задачи может изменять любой пользователь
	PolicyEveryone Policy = "everyone"
)

func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyOwner, nil
	case PolicyOwner, PolicyAuthor, PolicyEveryone:
		return p, nil
	default:
		return "", fmt.Errorf("неизвестная политика редактирования %q", raw)
	}
}
