package location

import (
	"log"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once sync.Once
	loc  *time.Location
)

// Location returns the single reference timezone of the bot. All fire times,
// daily counters and custom time input are interpreted in this zone.
func Location() *time.Location {
	once.Do(func() {
		var err error
		loc, err = time.LoadLocation(viper.GetString("settings.timezone"))
		if err != nil {
			log.Fatalf("error while load time location: %v", err)
		}
	})
	return loc
}
