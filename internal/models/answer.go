package models

// ChoiceAnswer is the payload shape for single_choice and multiple_choice.
// Selected is the canonical key; SelectedOptions and SelectedOption are accepted on input.
type ChoiceAnswer struct {
	Selected        []string `json:"selected,omitempty"`
	SelectedOptions []string `json:"selected_options,omitempty"`
	SelectedOption  string   `json:"selected_option,omitempty"`
}

// Keys merges every accepted key into one list.
func (a ChoiceAnswer) Keys() []string {
	keys := make([]string, 0, len(a.Selected)+len(a.SelectedOptions)+1)
	keys = append(keys, a.Selected...)
	keys = append(keys, a.SelectedOptions...)
	if a.SelectedOption != "" {
		keys = append(keys, a.SelectedOption)
	}
	return keys
}

type TextAnswer struct {
	Text        string `json:"text,omitempty"`
	ModelAnswer string `json:"model_answer,omitempty"`
}
