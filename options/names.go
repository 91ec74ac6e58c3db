// Package options stores the widget's named settings and resolves one
// effective value per language through a deterministic fallback chain.
package options

// Global, language-independent option names.
const (
	APIKey              = "api_key"
	WorkflowID          = "workflow_id"
	PersistentSessions  = "persistent_sessions"
	AttachmentsEnabled  = "attachments_enabled"
	AttachmentsMaxSize  = "attachments_max_size_mb"
	AttachmentsMaxFiles = "attachments_max_files"
)

// Translatable option names: one base value each, plus optional per-language
// overrides.
const (
	ButtonLabel = "widget_button_label"
	Greeting    = "widget_greeting"
	HeaderTitle = "widget_header_title"
	Disclaimer  = "widget_disclaimer"

	Prompt1Label = "starter_prompt_1_label"
	Prompt1Text  = "starter_prompt_1_prompt"
	Prompt1Icon  = "starter_prompt_1_icon"
	Prompt2Label = "starter_prompt_2_label"
	Prompt2Text  = "starter_prompt_2_prompt"
	Prompt2Icon  = "starter_prompt_2_icon"
	Prompt3Label = "starter_prompt_3_label"
	Prompt3Text  = "starter_prompt_3_prompt"
	Prompt3Icon  = "starter_prompt_3_icon"
	Prompt4Label = "starter_prompt_4_label"
	Prompt4Text  = "starter_prompt_4_prompt"
	Prompt4Icon  = "starter_prompt_4_icon"
	Prompt5Label = "starter_prompt_5_label"
	Prompt5Text  = "starter_prompt_5_prompt"
	Prompt5Icon  = "starter_prompt_5_icon"
)

var translatable = map[string]bool{
	ButtonLabel: true,
	Greeting:    true,
	HeaderTitle: true,
	Disclaimer:  true,

	Prompt1Label: true, Prompt1Text: true, Prompt1Icon: true,
	Prompt2Label: true, Prompt2Text: true, Prompt2Icon: true,
	Prompt3Label: true, Prompt3Text: true, Prompt3Icon: true,
	Prompt4Label: true, Prompt4Text: true, Prompt4Icon: true,
	Prompt5Label: true, Prompt5Text: true, Prompt5Icon: true,
}

// defaults supplies the out-of-the-box value for the widget-facing options.
var defaults = map[string]string{
	ButtonLabel: "Chat with us",
	Greeting:    "Hi! How can we help you today?",
	HeaderTitle: "Support",
}

// GlobalNames returns the language-independent option names.
func GlobalNames() []string {
	return []string{
		APIKey, WorkflowID, PersistentSessions,
		AttachmentsEnabled, AttachmentsMaxSize, AttachmentsMaxFiles,
	}
}

// Known reports whether name belongs to the fixed option set.
func Known(name string) bool {
	if translatable[name] {
		return true
	}
	for _, global := range GlobalNames() {
		if name == global {
			return true
		}
	}
	return false
}

// Translatable reports whether name carries per-language overrides.
func Translatable(name string) bool {
	return translatable[name]
}

// TranslatableNames returns the fixed enumerated set of translatable names.
func TranslatableNames() []string {
	return []string{
		ButtonLabel, Greeting, HeaderTitle, Disclaimer,
		Prompt1Label, Prompt1Text, Prompt1Icon,
		Prompt2Label, Prompt2Text, Prompt2Icon,
		Prompt3Label, Prompt3Text, Prompt3Icon,
		Prompt4Label, Prompt4Text, Prompt4Icon,
		Prompt5Label, Prompt5Text, Prompt5Icon,
	}
}

// Default returns the built-in value for name, or "".
func Default(name string) string {
	return defaults[name]
}
