package render

import "testing"

func TestTUIThemes_Complete(t *testing.T) {
	for _, theme := range AvailableTUIThemes() {
		t.Run(theme.Name, func(t *testing.T) {
			colors := map[string]string{
				"background":       string(theme.Background),
				"surface":          string(theme.Surface),
				"border":           string(theme.Border),
				"primary":          string(theme.Primary),
				"secondary":        string(theme.Secondary),
				"accent":           string(theme.Accent),
				"warning":          string(theme.Warning),
				"error":            string(theme.Error),
				"text":             string(theme.Text),
				"text dim":         string(theme.TextDim),
				"user bubble":      string(theme.UserBubble),
				"assistant bubble": string(theme.AssistantBubble),
			}
			for name, c := range colors {
				if c == "" {
					t.Errorf("%s color is empty", name)
				}
			}
			if theme.Description == "" {
				t.Error("description is empty")
			}
		})
	}
}

func TestGetTUIThemeByName(t *testing.T) {
	for _, name := range []string{"tokyonight", "tokyo-night", "catppuccin", "nord", "dracula"} {
		if _, ok := GetTUIThemeByName(name); !ok {
			t.Errorf("GetTUIThemeByName(%s) not found", name)
		}
	}
	if _, ok := GetTUIThemeByName("solarized"); ok {
		t.Error("unexpected theme solarized")
	}
}

func TestSetTUITheme(t *testing.T) {
	defer SetTUITheme("tokyonight")

	if !SetTUITheme("nord") {
		t.Fatal("SetTUITheme(nord) failed")
	}
	if GetTUITheme().Name != "nord" {
		t.Errorf("current theme = %s, want nord", GetTUITheme().Name)
	}
	if SetTUITheme("nope") {
		t.Error("SetTUITheme should reject unknown names")
	}
	if GetTUITheme().Name != "nord" {
		t.Error("failed SetTUITheme should keep the current theme")
	}
}

func TestTUIThemeNames(t *testing.T) {
	names := TUIThemeNames()
	if len(names) != len(AvailableTUIThemes()) {
		t.Fatalf("names = %v", names)
	}
	if names[0] != "tokyonight" {
		t.Errorf("first theme = %s, want tokyonight", names[0])
	}
}
