// Command twinfind finds duplicate files, similar images and duplicate music.
//
// Each tool walks the given directories (the current directory by default),
// prints its groups as a table, and can write a text or JSON report with
// --output. Settings come from ~/.config/twinfind/config.toml or
// ./twinfind.toml and are overridden by flags.
package main
