package render

import "github.com/gdamore/tcell/v2"

// ColorTheme defines application colors.
type ColorTheme struct {
	Background      tcell.Color
	Foreground      tcell.Color
	SidebarBg       tcell.Color
	SidebarFg       tcell.Color
	SidebarActiveBg tcell.Color
	SidebarActiveFg tcell.Color
	SelectionBg     tcell.Color
	SelectionFg     tcell.Color
	DirectoryFg     tcell.Color
	FileFg          tcell.Color
	GroupHeaderFg   tcell.Color
	MutedFg         tcell.Color
	FooterBg        tcell.Color
	FooterFg        tcell.Color
	PreviewBg       tcell.Color
	PreviewFg       tcell.Color
	ErrorFg         tcell.Color
	WarningFg       tcell.Color
	ConnectedFg     tcell.Color
	FlashBg         tcell.Color
	FlashFg         tcell.Color
}

// GetColorTheme returns the default color scheme.
func GetColorTheme() ColorTheme {
	return ColorTheme{
		Background:      tcell.ColorDefault,
		Foreground:      tcell.ColorDefault,
		SidebarBg:       tcell.ColorDefault,
		SidebarFg:       tcell.ColorDefault,
		SidebarActiveBg: tcell.Color33,
		SidebarActiveFg: tcell.ColorWhite,
		SelectionBg:     tcell.Color33,
		SelectionFg:     tcell.ColorWhite,
		DirectoryFg:     tcell.Color33,
		FileFg:          tcell.ColorDefault,
		GroupHeaderFg:   tcell.Color44,
		MutedFg:         tcell.ColorLightSlateGray,
		FooterBg:        tcell.ColorDefault,
		FooterFg:        tcell.ColorDefault,
		PreviewBg:       tcell.ColorDefault,
		PreviewFg:       tcell.ColorDefault,
		ErrorFg:         tcell.ColorRed,
		WarningFg:       tcell.ColorYellow,
		ConnectedFg:     tcell.ColorGreen,
		FlashBg:         tcell.ColorGreen,
		FlashFg:         tcell.ColorBlack,
	}
}
