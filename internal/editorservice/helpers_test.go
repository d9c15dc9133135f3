package editorservice

import "github.com/starford/lumina/internal/catalog"

func catalogPremium() []string {
	var ids []string
	for _, st := range catalog.All() {
		if st.Premium {
			ids = append(ids, st.ID)
		}
	}
	return ids
}
