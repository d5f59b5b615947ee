// Package weathercode converts raw upstream weather codes and wind-direction
// indexes into the domain model's typed enums, following the fixed table in
// the upstream API documentation (spec §6).
package weathercode

import "github.com/kjstillabower/weather-alert-service/internal/model"

// codeToCondition maps the upstream 3-digit weather code to a WeatherCondition.
// Grounded on mappings.py's per-code table; unknown codes map to UNKNOWN, not
// an error, per spec §6.
var codeToCondition = map[string]model.WeatherCondition{
	"100": model.ConditionClear,
	"101": model.ConditionPartlyCloudy,
	"110": model.ConditionPartlyCloudy,
	"115": model.ConditionPartlyCloudy,
	"120": model.ConditionPartlyCloudy,
	"130": model.ConditionFog,
	"140": model.ConditionRain,
	"160": model.ConditionSnow,
	"170": model.ConditionSnow,
	"181": model.ConditionSnow,
	"200": model.ConditionCloudy,
	"201": model.ConditionPartlyCloudy,
	"209": model.ConditionFog,
	"210": model.ConditionPartlyCloudy,
	"215": model.ConditionPartlyCloudy,
	"220": model.ConditionPartlyCloudy,
	"230": model.ConditionFog,
	"240": model.ConditionThunder,
	"250": model.ConditionSnow,
	"260": model.ConditionSnow,
	"270": model.ConditionSnow,
	"281": model.ConditionSnow,
	"300": model.ConditionRain,
	"301": model.ConditionRain,
	"302": model.ConditionRain,
	"303": model.ConditionSnow,
	"304": model.ConditionRain,
	"306": model.ConditionHeavyRain,
	"308": model.ConditionSevereStorm,
	"309": model.ConditionRain,
	"311": model.ConditionRain,
	"313": model.ConditionRain,
	"314": model.ConditionRain,
	"315": model.ConditionRain,
	"316": model.ConditionSnow,
	"317": model.ConditionSnow,
	"320": model.ConditionRain,
	"321": model.ConditionRain,
	"322": model.ConditionSnow,
	"323": model.ConditionRain,
	"324": model.ConditionRain,
	"325": model.ConditionRain,
	"326": model.ConditionSnow,
	"327": model.ConditionSnow,
	"328": model.ConditionRain,
	"329": model.ConditionSnow,
	"340": model.ConditionSnow,
	"350": model.ConditionThunder,
	"361": model.ConditionSnow,
	"371": model.ConditionSnow,
	"400": model.ConditionSnow,
	"401": model.ConditionSnow,
	"402": model.ConditionSnow,
	"403": model.ConditionSnow,
	"405": model.ConditionHeavySnow,
	"406": model.ConditionHeavySnow,
	"407": model.ConditionHeavySnow,
	"409": model.ConditionSnow,
	"411": model.ConditionSnow,
	"413": model.ConditionSnow,
	"414": model.ConditionSnow,
	"420": model.ConditionSnow,
	"421": model.ConditionSnow,
	"422": model.ConditionSnow,
	"423": model.ConditionSnow,
	"425": model.ConditionSnow,
	"426": model.ConditionSnow,
	"427": model.ConditionSnow,
	"450": model.ConditionThunder,
	"550": model.ConditionExtremeHeat,
	"600": model.ConditionCloudy,
	"650": model.ConditionRain,
	"850": model.ConditionSevereStorm,
	"851": model.ConditionSevereStorm,
	"852": model.ConditionSevereStorm,
	"853": model.ConditionSevereStorm,
	"860": model.ConditionSevereStorm,
	"861": model.ConditionSevereStorm,
	"862": model.ConditionSevereStorm,
	"863": model.ConditionSevereStorm,
}

// codeToDescription mirrors get_weather_description(): full localized Japanese
// text per code, independent of the coarser Condition enum above.
var codeToDescription = map[string]string{
	"100": "晴れ",
	"101": "晴れ時々曇り",
	"110": "晴れ後時々曇り",
	"115": "晴れ後一時曇り",
	"120": "晴れ時々一時雨",
	"130": "朝の内霧後晴れ",
	"140": "晴れ時々雨",
	"160": "晴れ時々雪",
	"170": "晴れ時々雪か雨",
	"181": "晴れ後雪か雨",
	"200": "曇り",
	"201": "曇り時々晴れ",
	"209": "霧",
	"210": "曇り後時々晴れ",
	"215": "曇り後一時晴れ",
	"220": "曇り時々一時雨",
	"230": "曇り後霧雨",
	"240": "曇り一時雷雨",
	"250": "曇り時々雪",
	"260": "曇り一時雪",
	"270": "曇り時々雪か雨",
	"281": "曇り後雪か雨",
	"300": "雨",
	"301": "雨時々晴れ",
	"302": "雨時々止む",
	"303": "雨時々雪",
	"304": "雨か雪",
	"306": "大雨",
	"308": "暴風雨",
	"309": "雨一時雪",
	"311": "雨後晴れ",
	"313": "雨後曇り",
	"314": "雨後時々雪",
	"315": "雨後雪",
	"316": "雪後晴れ",
	"317": "雪後曇り",
	"320": "朝の内雨後晴れ",
	"321": "朝の内雨後曇り",
	"322": "雨後一時雪",
	"323": "雨後昼頃から晴れ",
	"324": "雨後夕方から晴れ",
	"325": "雨後夜は晴れ",
	"326": "雨後夕方から雪",
	"327": "雨後夜は雪",
	"328": "雨一時強く降る",
	"329": "雨一時みぞれ",
	"340": "雪か雨",
	"350": "雷を伴う",
	"361": "雪か雨後晴れ",
	"371": "雪か雨後曇り",
	"400": "雪",
	"401": "雪時々晴れ",
	"402": "雪時々止む",
	"403": "雪時々雨",
	"405": "大雪",
	"406": "風雪強い",
	"407": "暴風雪",
	"409": "雪一時雨",
	"411": "雪後晴れ",
	"413": "雪後曇り",
	"414": "雪後雨",
	"420": "朝の内雪後晴れ",
	"421": "朝の内雪後曇り",
	"422": "雪後一時雨",
	"423": "雪後昼頃から晴れ",
	"425": "雪後夕方から雨",
	"426": "雪後夜は雨",
	"427": "雪一時強く降る",
	"450": "雷",
	"550": "猛暑",
	"600": "くもり",
	"650": "雨",
	"850": "台風",
	"851": "大荒れ",
	"852": "暴風警戒",
	"853": "暴風雨警戒",
	"860": "台風接近",
	"861": "台風通過",
	"862": "台風北上",
	"863": "大型台風",
}

// windDirectionTable is the fixed 0-8 index → (enum, degrees) mapping (spec §6).
var windDirectionTable = []struct {
	Dir model.WindDirection
	Deg int
}{
	{model.WindCalm, 0},
	{model.WindN, 0},
	{model.WindNE, 45},
	{model.WindE, 90},
	{model.WindSE, 135},
	{model.WindS, 180},
	{model.WindSW, 225},
	{model.WindW, 270},
	{model.WindNW, 315},
}

// ConditionForCode converts a raw upstream weather code to a WeatherCondition.
// Unknown codes return ConditionUnknown, not an error.
func ConditionForCode(code string) model.WeatherCondition {
	if c, ok := codeToCondition[code]; ok {
		return c
	}
	return model.ConditionUnknown
}

// DescriptionForCode returns the localized Japanese description for a code,
// or "" if the code is not in the table.
func DescriptionForCode(code string) string {
	return codeToDescription[code]
}

// WindDirectionForIndex converts the 0-8 wind-direction index into its
// (enum, degrees) pair. Out-of-range indexes return (UNKNOWN, 0).
func WindDirectionForIndex(idx int) (model.WindDirection, int) {
	if idx < 0 || idx >= len(windDirectionTable) {
		return model.WindUnknown, 0
	}
	e := windDirectionTable[idx]
	return e.Dir, e.Deg
}
