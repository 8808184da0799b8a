package ui

import (
	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/ytmproxy/internal/tasks"
)

var (
	_ list.Item = warmItem{}
)

// warmItem wraps [tasks.WarmItem] to implement [list.Item].
type warmItem struct {
	item tasks.WarmItem
}

func (i warmItem) FilterValue() string { return i.item.VideoID }

func (i warmItem) Title() string {
	if i.item.Err != nil {
		return "✗ " + i.item.VideoID
	}
	return "✓ " + i.item.VideoID
}

func (i warmItem) Description() string {
	if i.item.Err != nil {
		return i.item.Err.Error()
	}
	return i.item.URL
}

func resultItems(result *tasks.WarmResult) []list.Item {
	if result == nil {
		return nil
	}
	items := make([]list.Item, 0, len(result.Items))
	for _, it := range result.Items {
		if it.VideoID == "" {
			continue
		}
		items = append(items, warmItem{item: it})
	}
	return items
}
