// Package supervisor runs one worker per account alongside the display.
//
// Workers never report failure upward. The group ends when the parent
// context is cancelled, when the display returns (the user quit), or when
// the display fails; the last case is the only error Run returns.
package supervisor
