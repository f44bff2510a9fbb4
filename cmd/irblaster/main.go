package main

/*------------------------------------------------------------------
 *
 * Purpose:	IR blaster daemon: receive, transmit and switch tasks.
 *
 *---------------------------------------------------------------*/

import (
	irblaster "github.com/doismellburning/irblaster/src"
)

func main() {
	irblaster.BlasterMain()
}
