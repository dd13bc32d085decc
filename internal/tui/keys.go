// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	esc     key.Binding
	quit    key.Binding
	sync    key.Binding
	test    key.Binding
	retry   key.Binding
	refresh key.Binding
	info    key.Binding
}

var keys = keyMap{
	up:      key.NewBinding(key.WithKeys("up", "k")),
	down:    key.NewBinding(key.WithKeys("down", "j")),
	enter:   key.NewBinding(key.WithKeys("enter")),
	esc:     key.NewBinding(key.WithKeys("esc")),
	quit:    key.NewBinding(key.WithKeys("q", "ctrl+c")),
	sync:    key.NewBinding(key.WithKeys("s")),
	test:    key.NewBinding(key.WithKeys("t")),
	retry:   key.NewBinding(key.WithKeys("r")),
	refresh: key.NewBinding(key.WithKeys("f5", "ctrl+r")),
	info:    key.NewBinding(key.WithKeys("v")),
}

const hotKeys = "s: синхронизировать всё • enter: выбранный тип • t: проверить серверы • r: повторить неудачные • v: о программе • q: выход"
