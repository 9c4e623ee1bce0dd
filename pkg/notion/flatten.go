package notion

import (
	"encoding/json"
	"strings"
)

// FlattenPages reduces raw page objects from a query or search walk to
// one small map per page: "_id", "_url", and each property collapsed to
// a plain value. Full property objects are verbose enough to dominate
// tool output, so the flattened shape is what the tool layer returns.
func FlattenPages(items []json.RawMessage) []map[string]any {
	flattened := make([]map[string]any, 0, len(items))
	for _, item := range items {
		var page struct {
			ID         string                    `json:"id"`
			URL        string                    `json:"url"`
			Object     string                    `json:"object"`
			Properties map[string]map[string]any `json:"properties"`
		}
		if err := json.Unmarshal(item, &page); err != nil {
			continue
		}

		flat := map[string]any{"_id": page.ID}
		if page.URL != "" {
			flat["_url"] = page.URL
		}
		for name, prop := range page.Properties {
			flat[name] = flattenProperty(prop)
		}
		flattened = append(flattened, flat)
	}
	return flattened
}

// flattenProperty extracts the value from a Notion property object.
func flattenProperty(prop map[string]any) any {
	propType, _ := prop["type"].(string)

	switch propType {
	case "title":
		return extractRichText(prop["title"])
	case "rich_text":
		return extractRichText(prop["rich_text"])
	case "number":
		return prop["number"]
	case "select":
		if sel, ok := prop["select"].(map[string]any); ok {
			return sel["name"]
		}
		return nil
	case "multi_select":
		if arr, ok := prop["multi_select"].([]any); ok {
			var names []string
			for _, item := range arr {
				if m, ok := item.(map[string]any); ok {
					if name, ok := m["name"].(string); ok {
						names = append(names, name)
					}
				}
			}
			return names
		}
		return nil
	case "status":
		if status, ok := prop["status"].(map[string]any); ok {
			return status["name"]
		}
		return nil
	case "date":
		if date, ok := prop["date"].(map[string]any); ok {
			start, _ := date["start"].(string)
			end, _ := date["end"].(string)
			if end != "" {
				return map[string]string{"start": start, "end": end}
			}
			return start
		}
		return nil
	case "people":
		if arr, ok := prop["people"].([]any); ok {
			var names []string
			for _, item := range arr {
				if m, ok := item.(map[string]any); ok {
					if name, ok := m["name"].(string); ok {
						names = append(names, name)
					} else if id, ok := m["id"].(string); ok {
						names = append(names, id)
					}
				}
			}
			return names
		}
		return nil
	case "checkbox":
		return prop["checkbox"]
	case "url":
		return prop["url"]
	case "email":
		return prop["email"]
	case "phone_number":
		return prop["phone_number"]
	case "created_time":
		return prop["created_time"]
	case "last_edited_time":
		return prop["last_edited_time"]
	case "created_by":
		return flattenUser(prop["created_by"])
	case "last_edited_by":
		return flattenUser(prop["last_edited_by"])
	case "formula":
		if formula, ok := prop["formula"].(map[string]any); ok {
			ftype, _ := formula["type"].(string)
			return formula[ftype]
		}
		return nil
	case "relation":
		if arr, ok := prop["relation"].([]any); ok {
			var ids []string
			for _, item := range arr {
				if m, ok := item.(map[string]any); ok {
					if id, ok := m["id"].(string); ok {
						ids = append(ids, id)
					}
				}
			}
			return ids
		}
		return nil
	case "rollup":
		if rollup, ok := prop["rollup"].(map[string]any); ok {
			rtype, _ := rollup["type"].(string)
			return rollup[rtype]
		}
		return nil
	case "files":
		if arr, ok := prop["files"].([]any); ok {
			var urls []string
			for _, item := range arr {
				if m, ok := item.(map[string]any); ok {
					if ftype, ok := m["type"].(string); ok {
						if fileData, ok := m[ftype].(map[string]any); ok {
							if u, ok := fileData["url"].(string); ok {
								urls = append(urls, u)
							}
						}
					}
				}
			}
			return urls
		}
		return nil
	default:
		return nil
	}
}

// flattenUser reduces a user reference to its name, falling back to ID.
func flattenUser(v any) any {
	user, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if name, ok := user["name"].(string); ok && name != "" {
		return name
	}
	if id, ok := user["id"].(string); ok {
		return id
	}
	return nil
}

// extractRichText extracts plain text from a rich_text array.
func extractRichText(v any) string {
	arr, ok := v.([]any)
	if !ok {
		return ""
	}
	var text strings.Builder
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			if pt, ok := m["plain_text"].(string); ok {
				text.WriteString(pt)
			}
		}
	}
	return text.String()
}
