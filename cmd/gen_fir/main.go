package main

/*------------------------------------------------------------------
 *
 * Purpose:	Design the low pass filter used by the receive pipeline.
 *
 *---------------------------------------------------------------*/

import (
	irblaster "github.com/doismellburning/irblaster/src"
)

func main() {
	irblaster.GenFIRMain()
}
