package main

/*------------------------------------------------------------------
 *
 * Purpose:	Generate a photodiode capture of IR scripts.
 *
 *---------------------------------------------------------------*/

import (
	irblaster "github.com/doismellburning/irblaster/src"
)

func main() {
	irblaster.GenBeaconMain()
}
