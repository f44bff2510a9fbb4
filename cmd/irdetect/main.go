package main

/*------------------------------------------------------------------
 *
 * Purpose:	Look for IR beacons in raw photodiode captures.
 *
 *---------------------------------------------------------------*/

import (
	irblaster "github.com/doismellburning/irblaster/src"
)

func main() {
	irblaster.DetectMain()
}
